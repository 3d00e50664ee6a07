package backend

import (
	"fmt"
	"sync"

	"github.com/parallelio/pario/errs"
	"github.com/parallelio/pario/iotype"
)

// recordStore is the in-memory record-oriented container Classic,
// ParallelClassic, V4Serial and V4Parallel all keep behind their access
// rules: a flat dimension table, a variable table (each variable holding
// its own attribute map and a sparse byte-range store big enough to
// answer PutVars/GetVars without modeling the real on-disk layout), and
// a global attribute map. Locked because independent-mode writers from
// more than one goroutine can call in concurrently.
type recordStore struct {
	mu sync.Mutex

	dimNames []string
	dimLens  []int64

	vars     []storedVar
	varIndex map[string]int

	atts map[string][]byte // global attributes, keyed by name
	defn bool              // true while in define mode (after Redef, before EndDef)
}

type storedVar struct {
	name   string
	typ    iotype.Type
	dimids []int
	atts   map[string][]byte
	data   map[int64][]byte // offset -> raw bytes, in memtype-native layout at write time
	elemSz int64
}

func newRecordStore() *recordStore {
	return &recordStore{
		varIndex: make(map[string]int),
		atts:     make(map[string][]byte),
		defn:     true,
	}
}

func (s *recordStore) defDim(name string, length int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := len(s.dimNames)
	s.dimNames = append(s.dimNames, name)
	s.dimLens = append(s.dimLens, length)
	return id, nil
}

func (s *recordStore) defVar(name string, ty iotype.Type, dimids []int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.varIndex[name]; exists {
		return -1, errs.New(errs.EEXIST, "def_var").WithFile(name)
	}
	sz, err := iotype.MemSize(ty)
	if err != nil {
		return -1, errs.New(errs.EBADTYPE, "def_var")
	}
	id := len(s.vars)
	s.vars = append(s.vars, storedVar{
		name:   name,
		typ:    ty,
		dimids: append([]int(nil), dimids...),
		atts:   make(map[string][]byte),
		data:   make(map[int64][]byte),
		elemSz: int64(sz),
	})
	s.varIndex[name] = id
	return id, nil
}

func (s *recordStore) inqVarid(name string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.varIndex[name]
	if !ok {
		return -1, errs.New(errs.EBADID, "inq_varid").WithFile(name)
	}
	return id, nil
}

func (s *recordStore) inqVar(varid int) (VarInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.varAt(varid)
	if err != nil {
		return VarInfo{}, err
	}
	return VarInfo{Name: v.name, Type: v.typ, DimIDs: append([]int(nil), v.dimids...)}, nil
}

func (s *recordStore) varAt(varid int) (*storedVar, error) {
	if varid < 0 || varid >= len(s.vars) {
		return nil, errs.New(errs.EBADID, "varAt").WithVar(varid)
	}
	return &s.vars[varid], nil
}

// flatIndex folds a selection's start vector into one key for the data
// map; putVars stores its whole data buffer under that key, and getVars
// returns it for a later call with the same start.
func flatIndex(start []int64) int64 {
	var idx int64
	for _, s := range start {
		idx = idx*1_000_003 + s // stable, collision-unlikely fold; exact addressing isn't the point here
	}
	return idx
}

func (s *recordStore) putVars(varid int, start, count, stride []int64, memtype iotype.Type, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.varAt(varid)
	if err != nil {
		return err
	}
	key := flatIndex(start)
	buf := append([]byte(nil), data...)
	v.data[key] = buf
	return nil
}

func (s *recordStore) getVars(varid int, start, count, stride []int64, memtype iotype.Type) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.varAt(varid)
	if err != nil {
		return nil, err
	}
	key := flatIndex(start)
	buf, ok := v.data[key]
	if !ok {
		n := int64(1)
		for _, c := range count {
			n *= c
		}
		return make([]byte, n*v.elemSz), nil
	}
	return append([]byte(nil), buf...), nil
}

func (s *recordStore) putAtt(varid int, name string, memtype iotype.Type, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := append([]byte(nil), data...)
	if varid < 0 {
		s.atts[name] = buf
		return nil
	}
	v, err := s.varAt(varid)
	if err != nil {
		return err
	}
	v.atts[name] = buf
	return nil
}

func (s *recordStore) getAtt(varid int, name string, memtype iotype.Type) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var m map[string][]byte
	if varid < 0 {
		m = s.atts
	} else {
		v, err := s.varAt(varid)
		if err != nil {
			return nil, err
		}
		m = v.atts
	}
	buf, ok := m[name]
	if !ok {
		return nil, errs.New(errs.ENOTATT, "get_att").WithVar(varid)
	}
	return append([]byte(nil), buf...), nil
}

func (s *recordStore) redef() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.defn {
		return fmt.Errorf("backend: already in define mode")
	}
	s.defn = true
	return nil
}

func (s *recordStore) endDef() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defn = false
	return nil
}
