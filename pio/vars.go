package pio

import (
	"github.com/parallelio/pario/errs"
	"github.com/parallelio/pario/iosystem"
	"github.com/parallelio/pario/iotype"
)

// DefDim defines a new dimension on ncid, returning its dimension id.
// unlimited marks it as the file's record dimension (length 0 passed
// through to the backend).
func DefDim(sys *iosystem.IOSystem, ncid int, name string, length int64, unlimited bool) (int, error) {
	f, err := lookupFile(ncid)
	if err != nil {
		return 0, err
	}
	topo := sys.Topo
	role := roleFor(topo, f.Mode)
	issue := issuesCall(topo, f.BeKind, role, true)

	out, err := collectiveResult(topo, issue, func() ([]byte, error) {
		l := length
		if unlimited {
			l = 0
		}
		dimid, err := f.be.DefDim(name, l)
		if err != nil {
			return nil, err
		}
		return encodeI64(int64(dimid)), nil
	})
	if err != nil {
		return 0, err
	}
	dimid := int(decodeI64(out))

	if unlimited {
		f.mu.Lock()
		f.unlimDims[dimid] = true
		f.mu.Unlock()
	}
	return dimid, nil
}

// DefVar defines a new variable on ncid. Backend kinds where every I/O
// rank issues the call (KindV4Parallel, KindLogStructured) race each
// other defining the same name: under KindV4Parallel the losers see
// EEXIST from the backend's store and fall back to InqVarid, and
// KindLogStructured returns the existing id for a repeated name, so
// every rank still converges on the same varid.
func DefVar(sys *iosystem.IOSystem, ncid int, name string, ty iotype.Type, dimids []int) (int, error) {
	f, err := lookupFile(ncid)
	if err != nil {
		return 0, err
	}
	topo := sys.Topo
	role := roleFor(topo, f.Mode)
	issue := issuesCall(topo, f.BeKind, role, true)

	out, err := collectiveResult(topo, issue, func() ([]byte, error) {
		varid, err := f.be.DefVar(name, ty, dimids)
		if errs.CodeOf(err) == errs.EEXIST {
			varid, err = f.be.InqVarid(name)
		}
		if err != nil {
			return nil, err
		}
		return encodeI64(int64(varid)), nil
	})
	if err != nil {
		return 0, err
	}
	varid := int(decodeI64(out))

	recordVar := false
	f.mu.Lock()
	for _, d := range dimids {
		if f.unlimDims[d] {
			recordVar = true
			break
		}
	}
	if _, ok := f.varIndex[name]; !ok {
		f.vars = append(f.vars, &Var{
			VarID:     varid,
			Name:      name,
			Type:      ty,
			DimIDs:    append([]int(nil), dimids...),
			RecordVar: recordVar,
		})
		f.varIndex[name] = len(f.vars) - 1
	}
	f.mu.Unlock()
	return varid, nil
}

// InqVarid resolves a variable's name to its id.
func InqVarid(sys *iosystem.IOSystem, ncid int, name string) (int, error) {
	f, err := lookupFile(ncid)
	if err != nil {
		return 0, err
	}
	f.mu.Lock()
	idx, ok := f.varIndex[name]
	if ok {
		v := f.vars[idx]
		f.mu.Unlock()
		return v.VarID, nil
	}
	f.mu.Unlock()

	topo := sys.Topo
	role := roleFor(topo, f.Mode)
	issue := issuesCall(topo, f.BeKind, role, false)
	out, err := collectiveResult(topo, issue, func() ([]byte, error) {
		varid, err := f.be.InqVarid(name)
		if err != nil {
			return nil, err
		}
		return encodeI64(int64(varid)), nil
	})
	if err != nil {
		return 0, err
	}
	return int(decodeI64(out)), nil
}

// InqVar reports a previously defined variable's name/type/dimensions.
func InqVar(sys *iosystem.IOSystem, ncid, varid int) (*Var, error) {
	f, err := lookupFile(ncid)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.vars {
		if v.VarID == varid {
			cp := *v
			cp.DimIDs = append([]int(nil), v.DimIDs...)
			return &cp, nil
		}
	}
	return nil, errs.New(errs.EBADID, "InqVar")
}

// InqUnlimDims reports the dimension ids marked unlimited on ncid.
func InqUnlimDims(sys *iosystem.IOSystem, ncid int) ([]int, error) {
	f, err := lookupFile(ncid)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	dims := make([]int, 0, len(f.unlimDims))
	for d := range f.unlimDims {
		dims = append(dims, d)
	}
	return dims, nil
}

// DelAtt removes a variable attribute by name. None of the five backends
// model attribute deletion (PutAtt/GetAtt only), so this only clears the
// cached fill-value tracked on a Var when name is "_FillValue"; any other
// attribute name is a no-op success, matching the backends' lack of a
// delete path.
func DelAtt(sys *iosystem.IOSystem, ncid, varid int, name string) error {
	f, err := lookupFile(ncid)
	if err != nil {
		return err
	}
	if name != "_FillValue" {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.vars {
		if v.VarID == varid {
			v.HasFill = false
			v.FillValue = nil
			return nil
		}
	}
	return errs.New(errs.EBADID, "DelAtt")
}

func errNotFoundVar(varid int) error {
	return errs.New(errs.EBADID, "InqVar").WithVar(varid)
}

func errNotRecordVar(varid int) error {
	return errs.New(errs.EINVAL, "SetFrame").WithVar(varid)
}

// findVar locates varid among f's defined variables, locking f.mu itself.
func findVar(f *File, varid int) *Var {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.vars {
		if v.VarID == varid {
			return v
		}
	}
	return nil
}
