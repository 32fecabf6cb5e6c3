package position

import (
	"fortio.org/safecast"
	"go.lsp.dev/protocol"
)

const maxUint32 = ^uint32(0)

func toUint32(n int) uint32 {
	if n < 0 {
		return 0
	}
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		return maxUint32
	}
	return v
}

func NewPlaceFromLSP(p protocol.Position) Place {
	return Place{Line: int(p.Line), Character: int(p.Character)}
}

func (p Place) ToLSP() protocol.Position {
	return protocol.Position{
		Line:      toUint32(p.Line),
		Character: toUint32(p.Character),
	}
}

func (r Range) ToLSP() protocol.Range {
	return protocol.Range{
		Start: r.Start.ToLSP(),
		End:   r.End.ToLSP(),
	}
}
