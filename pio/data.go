package pio

import (
	"time"

	"github.com/parallelio/pario/iosystem"
	"github.com/parallelio/pario/iotype"
	"github.com/parallelio/pario/reqblock"
)

// PutAttTC writes a variable (or, with varid -1, global) attribute.
func PutAttTC(sys *iosystem.IOSystem, ncid, varid int, name string, memtype iotype.Type, data []byte) error {
	f, err := lookupFile(ncid)
	if err != nil {
		return err
	}
	topo := sys.Topo
	role := roleFor(topo, f.Mode)
	issue := issuesCall(topo, f.BeKind, role, true)

	_, err = collectiveResult(topo, issue, func() ([]byte, error) {
		if err := f.be.PutAtt(varid, name, memtype, data); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		return err
	}

	if varid >= 0 && name == "_FillValue" {
		f.mu.Lock()
		for _, v := range f.vars {
			if v.VarID == varid {
				v.HasFill = true
				v.FillValue = append([]byte(nil), data...)
				break
			}
		}
		f.mu.Unlock()
	}
	return nil
}

// GetAttTC reads a variable (or global, with varid -1) attribute.
func GetAttTC(sys *iosystem.IOSystem, ncid, varid int, name string, memtype iotype.Type) ([]byte, error) {
	f, err := lookupFile(ncid)
	if err != nil {
		return nil, err
	}
	topo := sys.Topo
	role := roleFor(topo, f.Mode)
	issue := issuesCall(topo, f.BeKind, role, false)

	return collectiveResult(topo, issue, func() ([]byte, error) {
		return f.be.GetAtt(varid, name, memtype)
	})
}

// PutVarsTC writes a strided selection of varid. The write itself always
// completes before this returns (none of the five backends model a real
// asynchronous path), but the request is still recorded with the file's
// planner so the buffered-write byte limit (flush_output_buffer's
// wb_pend accounting) is honored the same way a genuinely asynchronous
// backend would need it to be.
func PutVarsTC(sys *iosystem.IOSystem, ncid, varid int, start, count, stride []int64, memtype iotype.Type, data []byte) error {
	f, err := lookupFile(ncid)
	if err != nil {
		return err
	}
	topo := sys.Topo
	role := roleFor(topo, f.Mode)
	issue := issuesCall(topo, f.BeKind, role, true)

	began := time.Now()
	_, err = collectiveResult(topo, issue, func() ([]byte, error) {
		if err := f.be.PutVars(varid, start, count, stride, memtype, data); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.reqSeq++
	handle := f.reqSeq
	f.planner.Submit(varid, reqblock.Request{Handle: handle, Size: len(data)})
	flushErr := f.planner.Flush(false, 0, func(h []int) error { return f.be.WaitAll(h) })
	f.mu.Unlock()
	if flushErr != nil {
		return flushErr
	}

	statsFor(sys).RecordWrite(ncid, int64(len(data)), time.Since(began))
	return nil
}

// GetVarsTC reads a strided selection of varid.
func GetVarsTC(sys *iosystem.IOSystem, ncid, varid int, start, count, stride []int64, memtype iotype.Type) ([]byte, error) {
	f, err := lookupFile(ncid)
	if err != nil {
		return nil, err
	}
	topo := sys.Topo
	role := roleFor(topo, f.Mode)
	issue := issuesCall(topo, f.BeKind, role, false)

	began := time.Now()
	data, err := collectiveResult(topo, issue, func() ([]byte, error) {
		return f.be.GetVars(varid, start, count, stride, memtype)
	})
	if err != nil {
		return nil, err
	}
	statsFor(sys).RecordRead(ncid, int64(len(data)), time.Since(began))
	return data, nil
}

func ones(n int) []int64 {
	o := make([]int64, n)
	for i := range o {
		o[i] = 1
	}
	return o
}

// PutVar1TC writes a single element at index.
func PutVar1TC(sys *iosystem.IOSystem, ncid, varid int, index []int64, memtype iotype.Type, data []byte) error {
	return PutVarsTC(sys, ncid, varid, index, ones(len(index)), nil, memtype, data)
}

// GetVar1TC reads a single element at index.
func GetVar1TC(sys *iosystem.IOSystem, ncid, varid int, index []int64, memtype iotype.Type) ([]byte, error) {
	return GetVarsTC(sys, ncid, varid, index, ones(len(index)), nil, memtype)
}

// PutVarTC writes the whole of varid in one call.
func PutVarTC(sys *iosystem.IOSystem, ncid, varid int, memtype iotype.Type, data []byte) error {
	return PutVarsTC(sys, ncid, varid, nil, nil, nil, memtype, data)
}

// GetVarTC reads the whole of varid in one call.
func GetVarTC(sys *iosystem.IOSystem, ncid, varid int, memtype iotype.Type) ([]byte, error) {
	return GetVarsTC(sys, ncid, varid, nil, nil, nil, memtype)
}

// SetFrame records frame as a record variable's current frame, which
// AdvanceFrame reads and increments. WriteDarray, WriteDarrayMulti and
// ReadDarray take their frame as an argument and do not read it.
func SetFrame(sys *iosystem.IOSystem, ncid, varid, frame int) error {
	f, err := lookupFile(ncid)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.vars {
		if v.VarID == varid {
			if !v.RecordVar {
				return errNotRecordVar(varid)
			}
			v.Frame = frame
			return nil
		}
	}
	return errNotFoundVar(varid)
}

// AdvanceFrame moves a record variable's current frame forward by one
// and returns the new value.
func AdvanceFrame(sys *iosystem.IOSystem, ncid, varid int) (int, error) {
	f, err := lookupFile(ncid)
	if err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.vars {
		if v.VarID == varid {
			if !v.RecordVar {
				return 0, errNotRecordVar(varid)
			}
			v.Frame++
			return v.Frame, nil
		}
	}
	return 0, errNotFoundVar(varid)
}
