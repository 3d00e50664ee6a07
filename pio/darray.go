package pio

import (
	"github.com/parallelio/pario/decomp"
	"github.com/parallelio/pario/errs"
	"github.com/parallelio/pario/iosystem"
)

// WriteDarray stages one variable's compute-side buffer into ioid's
// MVCache slot for later rearrangement and backend write. It is
// WriteDarrayMulti with a single variable.
func WriteDarray(sys *iosystem.IOSystem, ncid, varid, ioid int, compBuf []byte, frame int) error {
	return WriteDarrayMulti(sys, ncid, []int{varid}, ioid, []int{frame}, [][]byte{compBuf})
}

// WriteDarrayMulti stages several variables sharing one decomposition
// into ioid's MVCache slot. Per the staging policy: if the slot already
// holds data for ioid with a matching per-array element count and
// record-variable flag, the new variables are appended to it; otherwise
// the existing slot is flushed first and a fresh one started. The slot
// is also flushed here when the aggregate staged size crosses the
// planner's block size limit, independent of Sync/CloseFile's own
// unconditional flush.
func WriteDarrayMulti(sys *iosystem.IOSystem, ncid int, varids []int, ioid int, frames []int, compBufs [][]byte) error {
	f, err := lookupFile(ncid)
	if err != nil {
		return err
	}
	desc, _, _, ok := decomp.Lookup(sys.Topo, ioid)
	if !ok {
		return errs.New(errs.EBADID, "WriteDarrayMulti")
	}

	recordVar := false
	if len(varids) > 0 {
		if v := findVar(f, varids[0]); v != nil {
			recordVar = v.RecordVar
		}
	}

	f.mu.Lock()
	slot, exists := f.cache.Get(ioid)
	mismatch := exists && (slot.ArrayLen != int64(desc.MapLen) || slot.RecordVar != recordVar)
	f.mu.Unlock()

	if mismatch {
		if err := flushSlot(sys, ncid, ioid); err != nil {
			return err
		}
		exists = false
	}

	f.mu.Lock()
	if !exists {
		slot = f.cache.Alloc(ioid, 0)
		slot.ArrayLen = int64(desc.MapLen)
		slot.RecordVar = recordVar
	}
	for i, vid := range varids {
		buf := compBufs[i]
		offset := len(slot.Data)
		grown, _ := f.cache.Realloc(ioid, offset+len(buf))
		slot = grown
		copy(slot.Data[offset:], buf)
		slot.VID = append(slot.VID, vid)

		frame := 0
		if i < len(frames) {
			frame = frames[i]
		}
		slot.Frame = append(slot.Frame, frame)

		var fill []byte
		if v := findVarLocked(f, vid); v != nil && v.HasFill {
			fill = v.FillValue
		}
		slot.FillValue = append(slot.FillValue, fill)
	}
	exceeded := len(slot.Data) >= defaultBlockSizeLimit
	f.mu.Unlock()

	if exceeded {
		return flushSlot(sys, ncid, ioid)
	}
	return nil
}

// flushAllSlots drains every decomposition currently staged in ncid's
// MVCache, in preparation for Sync or CloseFile. Cache.Clear discards
// slots without writing them, so this must run first whenever staged
// darray writes need to actually reach the backend.
func flushAllSlots(sys *iosystem.IOSystem, ncid int) error {
	f, err := lookupFile(ncid)
	if err != nil {
		return err
	}
	f.mu.Lock()
	ioids := f.cache.IOIDs()
	f.mu.Unlock()
	for _, ioid := range ioids {
		if err := flushSlot(sys, ncid, ioid); err != nil {
			return err
		}
	}
	return nil
}

// findVarLocked is findVar for callers that already hold f.mu.
func findVarLocked(f *File, varid int) *Var {
	for _, v := range f.vars {
		if v.VarID == varid {
			return v
		}
	}
	return nil
}

// flushSlot rearranges every variable currently staged in ioid's slot
// from compute order to I/O order and issues the backend write for
// each, then releases the slot. A no-op if nothing is staged.
func flushSlot(sys *iosystem.IOSystem, ncid, ioid int) error {
	f, err := lookupFile(ncid)
	if err != nil {
		return err
	}
	topo := sys.Topo
	desc, rearr, _, ok := decomp.Lookup(topo, ioid)
	if !ok {
		return errs.New(errs.EBADID, "flushSlot")
	}

	f.mu.Lock()
	slot, ok := f.cache.Get(ioid)
	f.mu.Unlock()
	if !ok || slot.NumArrays() == 0 {
		return nil
	}

	opts := sys.RearrOpts().Comp2IO
	varBytes := int(slot.ArrayLen) * desc.MemSz
	ioBufs := make([][]byte, slot.NumArrays())
	for i := range slot.VID {
		start := i * varBytes
		ioBufs[i] = rearr.Comp2IO(topo, desc, opts, slot.Data[start:start+varBytes])
	}

	role := roleFor(topo, f.Mode)
	issue := issuesCall(topo, f.BeKind, role, true)

	_, err = collectiveResult(topo, issue, func() ([]byte, error) {
		for i, vid := range slot.VID {
			var start []int64
			if slot.RecordVar {
				start = []int64{int64(slot.Frame[i])}
			}
			if err := f.be.PutVars(vid, start, nil, nil, desc.PIOType, ioBufs[i]); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.cache.Free(ioid)
	f.mu.Unlock()
	return nil
}

// ReadDarray reads varid through ioid's decomposition: the I/O-side
// backend read happens on the rank(s) that issue for this backend kind,
// its result is broadcast over the union communicator, and every rank
// rearranges that buffer back to its own compute-side slice.
func ReadDarray(sys *iosystem.IOSystem, ncid, varid, ioid, frame int) ([]byte, error) {
	f, err := lookupFile(ncid)
	if err != nil {
		return nil, err
	}
	topo := sys.Topo
	desc, rearr, _, ok := decomp.Lookup(topo, ioid)
	if !ok {
		return nil, errs.New(errs.EBADID, "ReadDarray")
	}

	recordVar := false
	if v := findVar(f, varid); v != nil {
		recordVar = v.RecordVar
	}

	role := roleFor(topo, f.Mode)
	issue := issuesCall(topo, f.BeKind, role, false)

	ioBuf, err := collectiveResult(topo, issue, func() ([]byte, error) {
		var start []int64
		if recordVar {
			start = []int64{int64(frame)}
		}
		return f.be.GetVars(varid, start, nil, nil, desc.PIOType)
	})
	if err != nil {
		return nil, err
	}

	opts := sys.RearrOpts().IO2Comp
	return rearr.IO2Comp(topo, desc, opts, ioBuf), nil
}
