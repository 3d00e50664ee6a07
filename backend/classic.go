package backend

import (
	"github.com/parallelio/pario/iotype"
)

// Classic is the in-memory stand-in for the classic array-file backend
// (v1/v2 on-disk layout): every rank that opens it may write, matching
// the original format's single-writer-process assumption not applying
// here since there is exactly one Classic instance per do_io rank.
type Classic struct {
	store *recordStore
}

func NewClassic() *Classic { return &Classic{store: newRecordStore()} }

func (b *Classic) Kind() Kind { return KindClassic }

func (b *Classic) DefDim(name string, length int64) (int, error) { return b.store.defDim(name, length) }
func (b *Classic) DefVar(name string, ty iotype.Type, dimids []int) (int, error) {
	return b.store.defVar(name, ty, dimids)
}
func (b *Classic) InqVarid(name string) (int, error) { return b.store.inqVarid(name) }
func (b *Classic) InqVar(varid int) (VarInfo, error) { return b.store.inqVar(varid) }
func (b *Classic) PutVars(varid int, start, count, stride []int64, memtype iotype.Type, data []byte) error {
	return b.store.putVars(varid, start, count, stride, memtype, data)
}
func (b *Classic) GetVars(varid int, start, count, stride []int64, memtype iotype.Type) ([]byte, error) {
	return b.store.getVars(varid, start, count, stride, memtype)
}
func (b *Classic) PutAtt(varid int, name string, memtype iotype.Type, data []byte) error {
	return b.store.putAtt(varid, name, memtype, data)
}
func (b *Classic) GetAtt(varid int, name string, memtype iotype.Type) ([]byte, error) {
	return b.store.getAtt(varid, name, memtype)
}
func (b *Classic) Redef() error          { return b.store.redef() }
func (b *Classic) EndDef() error         { return b.store.endDef() }
func (b *Classic) Sync() error           { return nil }
func (b *Classic) Close() error          { return nil }
func (b *Classic) WaitAll(_ []int) error { return nil }

// ParallelClassic wraps the same record store but restricts def_dim,
// def_var and put_* calls to the I/O-master rank unless the file was
// opened with the independent flag, matching the independent/collective
// mode switch collective writes use.
type ParallelClassic struct {
	store *recordStore
	role  Role
	hints Hints
}

func NewParallelClassic(role Role) *ParallelClassic {
	return &ParallelClassic{store: newRecordStore(), role: role}
}

func (b *ParallelClassic) Kind() Kind { return KindParallelClassic }

// Hints reports the implementation hints set on this file at create
// time: alignment, collective buffering, in-place byte-swap, and
// pending-buffer size.
func (b *ParallelClassic) Hints() Hints { return b.hints }

func (b *ParallelClassic) canWrite() bool { return b.role.IOMaster || b.role.Independent }

func (b *ParallelClassic) DefDim(name string, length int64) (int, error) {
	if !b.canWrite() {
		return -1, errNotWriter(KindParallelClassic)
	}
	return b.store.defDim(name, length)
}
func (b *ParallelClassic) DefVar(name string, ty iotype.Type, dimids []int) (int, error) {
	if !b.canWrite() {
		return -1, errNotWriter(KindParallelClassic)
	}
	return b.store.defVar(name, ty, dimids)
}
func (b *ParallelClassic) InqVarid(name string) (int, error) { return b.store.inqVarid(name) }
func (b *ParallelClassic) InqVar(varid int) (VarInfo, error) { return b.store.inqVar(varid) }
func (b *ParallelClassic) PutVars(varid int, start, count, stride []int64, memtype iotype.Type, data []byte) error {
	if !b.canWrite() {
		return errNotWriter(KindParallelClassic)
	}
	return b.store.putVars(varid, start, count, stride, memtype, data)
}
func (b *ParallelClassic) GetVars(varid int, start, count, stride []int64, memtype iotype.Type) ([]byte, error) {
	return b.store.getVars(varid, start, count, stride, memtype)
}
func (b *ParallelClassic) PutAtt(varid int, name string, memtype iotype.Type, data []byte) error {
	if !b.canWrite() {
		return errNotWriter(KindParallelClassic)
	}
	return b.store.putAtt(varid, name, memtype, data)
}
func (b *ParallelClassic) GetAtt(varid int, name string, memtype iotype.Type) ([]byte, error) {
	return b.store.getAtt(varid, name, memtype)
}
func (b *ParallelClassic) Redef() error  { return b.store.redef() }
func (b *ParallelClassic) EndDef() error { return b.store.endDef() }
func (b *ParallelClassic) Sync() error   { return nil }
func (b *ParallelClassic) Close() error  { return nil }

// WaitAll completes the buffered nonblocking puts collective-mode writes
// issue; the in-memory store already applied them synchronously in
// PutVars, so this only needs to exist to satisfy the Backend contract.
func (b *ParallelClassic) WaitAll(_ []int) error { return nil }
