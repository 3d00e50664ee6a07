package backend

import "github.com/parallelio/pario/iotype"

// v4Backend is the HDF5-v4-like backend shared by V4Serial and
// V4Parallel: same record store as Classic, but its access rule is keyed
// on I/O-communicator membership rather than independent/collective
// mode. The parallel variant issues every call on every I/O rank; the
// serial variant restricts DefDim, DefVar, PutVars, GetVars and PutAtt to
// rank 0 of the I/O communicator and accepts the inquiry, GetAtt and
// Redef/EndDef/Sync/Close/WaitAll calls on any rank.
type v4Backend struct {
	store    *recordStore
	role     Role
	parallel bool
}

func (b *v4Backend) allowed() bool { return b.parallel || b.role.IOMaster }

func (b *v4Backend) DefDim(name string, length int64) (int, error) {
	if !b.allowed() {
		return -1, errNotWriter(b.kind())
	}
	return b.store.defDim(name, length)
}
func (b *v4Backend) DefVar(name string, ty iotype.Type, dimids []int) (int, error) {
	if !b.allowed() {
		return -1, errNotWriter(b.kind())
	}
	return b.store.defVar(name, ty, dimids)
}
func (b *v4Backend) InqVarid(name string) (int, error) { return b.store.inqVarid(name) }
func (b *v4Backend) InqVar(varid int) (VarInfo, error) { return b.store.inqVar(varid) }
func (b *v4Backend) PutVars(varid int, start, count, stride []int64, memtype iotype.Type, data []byte) error {
	if !b.allowed() {
		return errNotWriter(b.kind())
	}
	return b.store.putVars(varid, start, count, stride, memtype, data)
}
func (b *v4Backend) GetVars(varid int, start, count, stride []int64, memtype iotype.Type) ([]byte, error) {
	if !b.allowed() {
		return nil, errNotWriter(b.kind())
	}
	return b.store.getVars(varid, start, count, stride, memtype)
}
func (b *v4Backend) PutAtt(varid int, name string, memtype iotype.Type, data []byte) error {
	if !b.allowed() {
		return errNotWriter(b.kind())
	}
	return b.store.putAtt(varid, name, memtype, data)
}
func (b *v4Backend) GetAtt(varid int, name string, memtype iotype.Type) ([]byte, error) {
	return b.store.getAtt(varid, name, memtype)
}
func (b *v4Backend) Redef() error  { return b.store.redef() }
func (b *v4Backend) EndDef() error { return b.store.endDef() }
func (b *v4Backend) Sync() error   { return nil }
func (b *v4Backend) Close() error  { return nil }
func (b *v4Backend) WaitAll(_ []int) error { return nil }
func (b *v4Backend) kind() Kind {
	if b.parallel {
		return KindV4Parallel
	}
	return KindV4Serial
}

// V4Serial restricts define, put, get_vars and put_att calls to
// I/O-communicator rank 0.
type V4Serial struct{ *v4Backend }

func NewV4Serial(role Role) *V4Serial {
	return &V4Serial{&v4Backend{store: newRecordStore(), role: role, parallel: false}}
}
func (b *V4Serial) Kind() Kind { return KindV4Serial }

// V4Parallel allows every I/O rank to call directly.
type V4Parallel struct{ *v4Backend }

func NewV4Parallel(role Role) *V4Parallel {
	return &V4Parallel{&v4Backend{store: newRecordStore(), role: role, parallel: true}}
}
func (b *V4Parallel) Kind() Kind { return KindV4Parallel }
