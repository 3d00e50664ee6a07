package pio

import (
	"github.com/parallelio/pario/backend"
	"github.com/parallelio/pario/errs"
	"github.com/parallelio/pario/iosystem"
	"github.com/parallelio/pario/iotype"
)

func openBackend(kind backend.Kind, mode backend.CreateMode, role backend.Role) (backend.Backend, error) {
	return backend.New(kind, role, backend.DefaultHints())
}

// CreateFile opens kind (forcing ModeWrite) for name and returns its
// ncid, agreed on by every rank of sys.Topo.UnionComm.
func CreateFile(sys *iosystem.IOSystem, name string, pioType iotype.Type, kind backend.Kind, mode backend.CreateMode, retry bool) (int, error) {
	mode |= backend.ModeWrite
	topo := sys.Topo
	role := roleFor(topo, mode)

	ncid, _, err := registerFile(topo, func() (*File, error) {
		be, gotKind, gotMode, err := backend.Dispatch(kind, mode, role, retry, openBackend)
		if err != nil {
			return nil, err
		}
		return newFile(name, pioType, be, gotKind, gotMode), nil
	})
	if err != nil {
		return 0, err
	}
	statsFor(sys).Open(ncid, name)
	return ncid, nil
}

// OpenFile opens an existing file for name, retrying against the serial
// backend on a failed parallel open.
func OpenFile(sys *iosystem.IOSystem, name string, pioType iotype.Type, kind backend.Kind, mode backend.CreateMode) (int, error) {
	return openFile(sys, name, pioType, kind, mode, true)
}

// OpenFile2 is OpenFile without the serial-backend retry.
func OpenFile2(sys *iosystem.IOSystem, name string, pioType iotype.Type, kind backend.Kind, mode backend.CreateMode) (int, error) {
	return openFile(sys, name, pioType, kind, mode, false)
}

func openFile(sys *iosystem.IOSystem, name string, pioType iotype.Type, kind backend.Kind, mode backend.CreateMode, retry bool) (int, error) {
	topo := sys.Topo
	role := roleFor(topo, mode)

	ncid, _, err := registerFile(topo, func() (*File, error) {
		be, gotKind, gotMode, err := backend.Dispatch(kind, mode, role, retry, openBackend)
		if err != nil {
			return nil, err
		}
		return newFile(name, pioType, be, gotKind, gotMode), nil
	})
	if err != nil {
		return 0, err
	}
	statsFor(sys).Open(ncid, name)
	return ncid, nil
}

// CloseFile drains every outstanding write request, closes the backend
// on the rank(s) that own it, reduces the file's I/O statistics across
// the iosystem, and releases ncid.
func CloseFile(sys *iosystem.IOSystem, ncid int) error {
	f, err := lookupFile(ncid)
	if err != nil {
		return err
	}
	topo := sys.Topo
	role := roleFor(topo, f.Mode)

	if err := flushAllSlots(sys, ncid); err != nil {
		return err
	}
	f.mu.Lock()
	flushErr := f.planner.Flush(true, 0, func(h []int) error { return f.be.WaitAll(h) })
	f.cache.Clear()
	f.mu.Unlock()
	if flushErr != nil {
		return flushErr
	}

	if issuesCall(topo, f.BeKind, role, true) {
		if err := f.be.Close(); err != nil {
			return err
		}
	}
	topo.UnionComm.Barrier()
	statsFor(sys).Close(topo.UnionComm, topo.UnionRank, topo.IORanks[0], ncid)
	deregisterFile(ncid)
	return nil
}

// Sync drains outstanding write requests and flushes the backend.
func Sync(sys *iosystem.IOSystem, ncid int) error {
	f, err := lookupFile(ncid)
	if err != nil {
		return err
	}
	topo := sys.Topo
	role := roleFor(topo, f.Mode)

	if err := flushAllSlots(sys, ncid); err != nil {
		return err
	}
	f.mu.Lock()
	flushErr := f.planner.Flush(true, 0, func(h []int) error { return f.be.WaitAll(h) })
	f.mu.Unlock()
	if flushErr != nil {
		return flushErr
	}
	if issuesCall(topo, f.BeKind, role, true) {
		return f.be.Sync()
	}
	return nil
}

// Redef re-enters define mode on an open file.
func Redef(sys *iosystem.IOSystem, ncid int) error {
	f, err := lookupFile(ncid)
	if err != nil {
		return err
	}
	topo := sys.Topo
	if issuesCall(topo, f.BeKind, roleFor(topo, f.Mode), true) {
		return f.be.Redef()
	}
	return nil
}

// EndDef leaves define mode, committing the file's schema.
func EndDef(sys *iosystem.IOSystem, ncid int) error {
	f, err := lookupFile(ncid)
	if err != nil {
		return err
	}
	topo := sys.Topo
	if issuesCall(topo, f.BeKind, roleFor(topo, f.Mode), true) {
		return f.be.EndDef()
	}
	return nil
}

// SetFill sets ncid's fill mode and returns the previous setting. Unlike
// the rest of the backend contract this is tracked entirely in the File
// handle: none of the five backends model fill-value write-through, so
// there is nothing further to push down.
func SetFill(sys *iosystem.IOSystem, ncid int, fill bool) (bool, error) {
	f, err := lookupFile(ncid)
	if err != nil {
		return false, err
	}
	f.mu.Lock()
	old := f.fillMode
	f.fillMode = fill
	f.mu.Unlock()
	return old, nil
}

// DeleteFile removes a file by name. There is no on-disk state behind
// any backend here, so a currently-open file is simply closed; deleting
// an unknown name reports EBADID.
func DeleteFile(sys *iosystem.IOSystem, name string) error {
	filesMu.Lock()
	var ncid int
	found := false
	for id, f := range files {
		if f.Name == name {
			ncid, found = id, true
			break
		}
	}
	filesMu.Unlock()
	if !found {
		return errs.New(errs.EBADID, "DeleteFile").WithFile(name)
	}
	return CloseFile(sys, ncid)
}
