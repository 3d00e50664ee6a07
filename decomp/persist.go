// persist.go implements decomposition persistence: the plain-text map
// format used for debugging (writemap/readmap) and a self-describing
// binary format (write_nc_decomp/read_nc_decomp). The original library's
// self-describing format is itself a netCDF file; pario has no netCDF
// binding in its dependency set, so the self-describing format here is
// a protobuf-wire-encoded equivalent (see DESIGN.md) carrying the version,
// max_maplen, order, dimension count and sizes, per-task map lengths and
// per-task maps; the title, history, source and backtrace attributes are
// not written. It is built directly on
// google.golang.org/protobuf/encoding/protowire rather than generated
// .pb.go bindings.
package decomp

import (
	"bufio"
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/parallelio/pario/comm"
)

const textDecompVersion = 2001

// WriteMap gathers every compute rank's Map onto CompRoot and writes the
// plain-text decomposition format there. Every rank sharing desc's
// CompComm must call WriteMap together; only CompRoot's w is used.
func WriteMap(topo *comm.Topology, desc *Desc, w io.Writer) error {
	if !topo.CompProc {
		return nil
	}
	c := topo.CompComm
	maps := gatherMaps(c, topo.CompRank, topo.CompRoot, desc.Map)
	if topo.CompRank != topo.CompRoot {
		return nil
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "version %d npes %d ndims %d\n", textDecompVersion, c.Size(), desc.NDims)
	for i, d := range desc.DimLen {
		if i > 0 {
			fmt.Fprint(bw, " ")
		}
		fmt.Fprintf(bw, "%d", d)
	}
	fmt.Fprint(bw, "\n")
	for r, m := range maps {
		fmt.Fprintf(bw, "%d %d\n", r, len(m))
		for i, v := range m {
			if i > 0 {
				fmt.Fprint(bw, " ")
			}
			fmt.Fprintf(bw, "%d", v)
		}
		fmt.Fprint(bw, "\n")
	}
	return bw.Flush()
}

// ReadMap parses the plain-text decomposition format from r on CompRoot
// and scatters each rank's map back to it. Every rank sharing topo's
// CompComm must call ReadMap together; non-root ranks pass a nil r.
func ReadMap(topo *comm.Topology, r io.Reader) (ndims int, dimlen []int64, mp []int64, err error) {
	if !topo.CompProc {
		return 0, nil, nil, nil
	}
	c := topo.CompComm

	var maps [][]int64
	if topo.CompRank == topo.CompRoot {
		var npes int
		var sc = bufio.NewScanner(r)
		sc.Buffer(make([]byte, 64*1024), 64*1024*1024)
		if !sc.Scan() {
			return 0, nil, nil, fmt.Errorf("decomp: empty decomp file")
		}
		if _, err := fmt.Sscanf(sc.Text(), "version %d npes %d ndims %d", new(int), &npes, &ndims); err != nil {
			return 0, nil, nil, fmt.Errorf("decomp: bad header: %w", err)
		}
		if !sc.Scan() {
			return 0, nil, nil, fmt.Errorf("decomp: missing dimlen line")
		}
		dimlen = scanInt64s(sc.Text())
		maps = make([][]int64, npes)
		for rank := 0; rank < npes; rank++ {
			if !sc.Scan() {
				return 0, nil, nil, fmt.Errorf("decomp: truncated file at rank %d header", rank)
			}
			var gotRank, maplen int
			if _, err := fmt.Sscanf(sc.Text(), "%d %d", &gotRank, &maplen); err != nil {
				return 0, nil, nil, fmt.Errorf("decomp: bad rank header: %w", err)
			}
			// WriteMap emits a map line after every rank header, empty
			// when maplen is 0, so it is consumed in both cases.
			if !sc.Scan() {
				return 0, nil, nil, fmt.Errorf("decomp: truncated file at rank %d map", rank)
			}
			if maplen == 0 {
				maps[gotRank] = nil
				continue
			}
			maps[gotRank] = scanInt64s(sc.Text())
		}
	}

	ndims = broadcastInt(c, topo.CompRank, topo.CompRoot, ndims)
	dimlen = broadcastI64s(c, topo.CompRank, topo.CompRoot, dimlen)
	mp = scatterMaps(c, topo.CompRank, topo.CompRoot, maps)
	return ndims, dimlen, mp, nil
}

func scanInt64s(line string) []int64 {
	var vals []int64
	var cur int64
	have := false
	neg := false
	flush := func() {
		if have {
			if neg {
				cur = -cur
			}
			vals = append(vals, cur)
			cur, have, neg = 0, false, false
		}
	}
	for _, ch := range line {
		switch {
		case ch == '-':
			neg = true
		case ch >= '0' && ch <= '9':
			cur = cur*10 + int64(ch-'0')
			have = true
		default:
			flush()
		}
	}
	flush()
	return vals
}

// gatherMaps collects every rank's local map onto root, indexed by
// sender rank; returns nil on non-root callers. Swapm needs declared
// receive sizes ahead of time, which a plain gather doesn't have, so
// each rank's length is exchanged first in a dedicated length round
// (mirroring scatterMaps's inverse two-phase shape).
func gatherMaps(c *comm.Communicator, self, root int, local []int64) [][]int64 {
	planLen := comm.ExchangePlan{Send: make([][]byte, c.Size()), Recv: make([][]int, c.Size())}
	if self != root {
		planLen.Send[root] = encodeI64(int64(len(local)))
	} else {
		for r := 0; r < c.Size(); r++ {
			if r != root {
				planLen.Recv[r] = []int{8}
			}
		}
	}
	recvLen := c.Swapm(self, planLen, comm.DefaultFlowOpts())

	lens := make([]int64, c.Size())
	if self == root {
		lens[root] = int64(len(local))
		for r := 0; r < c.Size(); r++ {
			if r != root && recvLen[r] != nil {
				lens[r] = decodeI64(recvLen[r])
			}
		}
	}

	planData := comm.ExchangePlan{Send: make([][]byte, c.Size()), Recv: make([][]int, c.Size())}
	if self != root {
		planData.Send[root] = encodeI64s(local)
	} else {
		for r := 0; r < c.Size(); r++ {
			if r != root && lens[r] > 0 {
				planData.Recv[r] = []int{int(8 * lens[r])}
			}
		}
	}
	recvData := c.Swapm(self, planData, comm.DefaultFlowOpts())
	if self != root {
		return nil
	}
	maps := make([][]int64, c.Size())
	maps[root] = local
	for r := 0; r < c.Size(); r++ {
		if r == root {
			continue
		}
		maps[r] = decodeI64s(recvData[r])
	}
	return maps
}

// scatterMaps is gatherMaps's inverse: root sends maps[r] to every rank r
// and every rank (including root) returns its own. Swapm needs declared
// receive sizes ahead of time, which a plain scatter doesn't have, so
// sizes are exchanged first in a dedicated length round.
func scatterMaps(c *comm.Communicator, self, root int, maps [][]int64) []int64 {
	lens := make([]int64, c.Size())
	if self == root {
		for r := 0; r < c.Size(); r++ {
			lens[r] = int64(len(maps[r]))
		}
	}
	planLen := comm.ExchangePlan{Send: make([][]byte, c.Size()), Recv: make([][]int, c.Size())}
	if self == root {
		for r := 0; r < c.Size(); r++ {
			if r != root {
				planLen.Send[r] = encodeI64(lens[r])
			}
		}
	} else {
		planLen.Recv[root] = []int{8}
	}
	recvLen := c.Swapm(self, planLen, comm.DefaultFlowOpts())

	myLen := lens[self]
	if self != root {
		myLen = decodeI64(recvLen[root])
	}

	planData := comm.ExchangePlan{Send: make([][]byte, c.Size()), Recv: make([][]int, c.Size())}
	if self == root {
		for r := 0; r < c.Size(); r++ {
			if r != root && lens[r] > 0 {
				planData.Send[r] = encodeI64s(maps[r])
			}
		}
	} else if myLen > 0 {
		planData.Recv[root] = []int{int(8 * myLen)}
	}
	recvData := c.Swapm(self, planData, comm.DefaultFlowOpts())

	if self == root {
		return maps[root]
	}
	if myLen == 0 {
		return nil
	}
	return decodeI64s(recvData[root])
}

func broadcastInt(c *comm.Communicator, self, root, v int) int {
	var buf []byte
	if self == root {
		buf = encodeI64(int64(v))
	}
	return int(decodeI64(c.Bcast(self, root, buf)))
}

func broadcastI64s(c *comm.Communicator, self, root int, v []int64) []int64 {
	n := broadcastInt(c, self, root, len(v))
	var buf []byte
	if self == root {
		buf = encodeI64s(v)
	}
	out := c.Bcast(self, root, buf)
	if self == root {
		return v
	}
	if n == 0 {
		return nil
	}
	return decodeI64s(out)
}

// Self-describing format field numbers.
const (
	fieldVersion    = 1
	fieldMaxMaplen  = 2
	fieldOrder      = 3
	fieldDimCount   = 4
	fieldGlobalSize = 5 // repeated, packed varint
	fieldTaskMaplen = 6 // repeated, packed varint, one per task
	fieldTaskMap    = 7 // repeated message, one per task: {task int, values packed varint}
)

// WriteNcDecomp writes the self-describing decomposition format, gathered
// the same way as WriteMap: every rank in topo's CompComm must call this
// together; only CompRoot's w is used.
func WriteNcDecomp(topo *comm.Topology, desc *Desc, w io.Writer) error {
	if !topo.CompProc {
		return nil
	}
	c := topo.CompComm
	maps := gatherMaps(c, topo.CompRank, topo.CompRoot, desc.Map)
	if topo.CompRank != topo.CompRoot {
		return nil
	}

	maxMaplen := 0
	for _, m := range maps {
		if len(m) > maxMaplen {
			maxMaplen = len(m)
		}
	}

	var b []byte
	b = protowire.AppendTag(b, fieldVersion, protowire.VarintType)
	b = protowire.AppendVarint(b, textDecompVersion)
	b = protowire.AppendTag(b, fieldMaxMaplen, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(maxMaplen))
	b = protowire.AppendTag(b, fieldOrder, protowire.BytesType)
	b = protowire.AppendString(b, "C")
	b = protowire.AppendTag(b, fieldDimCount, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(desc.NDims))

	b = protowire.AppendTag(b, fieldGlobalSize, protowire.BytesType)
	var packed []byte
	for _, d := range desc.DimLen {
		packed = protowire.AppendVarint(packed, uint64(d))
	}
	b = protowire.AppendBytes(b, packed)

	var maplens []byte
	for _, m := range maps {
		maplens = protowire.AppendVarint(maplens, uint64(len(m)))
	}
	b = protowire.AppendTag(b, fieldTaskMaplen, protowire.BytesType)
	b = protowire.AppendBytes(b, maplens)

	for task, m := range maps {
		var entry []byte
		entry = protowire.AppendTag(entry, 1, protowire.VarintType)
		entry = protowire.AppendVarint(entry, uint64(task))
		var vals []byte
		for _, v := range m {
			vals = protowire.AppendVarint(vals, uint64(v))
		}
		entry = protowire.AppendTag(entry, 2, protowire.BytesType)
		entry = protowire.AppendBytes(entry, vals)

		b = protowire.AppendTag(b, fieldTaskMap, protowire.BytesType)
		b = protowire.AppendBytes(b, entry)
	}

	_, err := w.Write(b)
	return err
}

// ReadNcDecomp parses the self-describing format on CompRoot and scatters
// each rank's map back, mirroring ReadMap.
func ReadNcDecomp(topo *comm.Topology, r io.Reader) (ndims int, dimlen []int64, mp []int64, err error) {
	if !topo.CompProc {
		return 0, nil, nil, nil
	}
	c := topo.CompComm

	var maps [][]int64
	if topo.CompRank == topo.CompRoot {
		raw, readErr := io.ReadAll(r)
		if readErr != nil {
			return 0, nil, nil, readErr
		}
		var dimCount int
		var taskEntries [][]byte
		b := raw
		for len(b) > 0 {
			num, typ, n := protowire.ConsumeTag(b)
			if n < 0 {
				return 0, nil, nil, fmt.Errorf("decomp: malformed self-describing decomp")
			}
			b = b[n:]
			switch {
			case num == fieldDimCount && typ == protowire.VarintType:
				v, n := protowire.ConsumeVarint(b)
				b = b[n:]
				dimCount = int(v)
			case num == fieldGlobalSize && typ == protowire.BytesType:
				v, n := protowire.ConsumeBytes(b)
				b = b[n:]
				for len(v) > 0 {
					d, dn := protowire.ConsumeVarint(v)
					v = v[dn:]
					dimlen = append(dimlen, int64(d))
				}
			case num == fieldTaskMap && typ == protowire.BytesType:
				v, n := protowire.ConsumeBytes(b)
				b = b[n:]
				taskEntries = append(taskEntries, v)
			case typ == protowire.VarintType:
				_, n := protowire.ConsumeVarint(b)
				b = b[n:]
			case typ == protowire.BytesType:
				_, n := protowire.ConsumeBytes(b)
				b = b[n:]
			default:
				return 0, nil, nil, fmt.Errorf("decomp: unsupported wire type %v", typ)
			}
		}
		ndims = dimCount
		maps = make([][]int64, len(taskEntries))
		for _, entry := range taskEntries {
			task := -1
			var vals []int64
			e := entry
			for len(e) > 0 {
				num, typ, n := protowire.ConsumeTag(e)
				e = e[n:]
				switch {
				case num == 1 && typ == protowire.VarintType:
					v, n := protowire.ConsumeVarint(e)
					e = e[n:]
					task = int(v)
				case num == 2 && typ == protowire.BytesType:
					v, n := protowire.ConsumeBytes(e)
					e = e[n:]
					for len(v) > 0 {
						val, vn := protowire.ConsumeVarint(v)
						v = v[vn:]
						vals = append(vals, int64(val))
					}
				default:
					_, n := protowire.ConsumeVarint(e)
					e = e[n:]
				}
			}
			if task >= 0 {
				maps[task] = vals
			}
		}
	}

	ndims = broadcastInt(c, topo.CompRank, topo.CompRoot, ndims)
	dimlen = broadcastI64s(c, topo.CompRank, topo.CompRoot, dimlen)
	mp = scatterMaps(c, topo.CompRank, topo.CompRoot, maps)
	return ndims, dimlen, mp, nil
}
