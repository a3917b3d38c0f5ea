package wasmfile

import (
	"github.com/wasmlink/jsld/wasmfile/internal/binary"
)

// Encode serialises a Module back to binary form. Function bodies are
// emitted as empty (locals-free, single end opcode) and global
// initializers as zero constants; the encoder exists to build structural
// fixtures, not executable modules with interesting behaviour.
func Encode(m *Module) []byte {
	w := binary.NewWriter()
	w.WriteU32LE(Magic)
	w.WriteU32LE(Version)

	if len(m.Types) > 0 {
		s := binary.NewWriter()
		s.WriteU32(uint32(len(m.Types)))
		for _, ft := range m.Types {
			s.PutByte(0x60)
			s.WriteU32(uint32(len(ft.Params)))
			for _, p := range ft.Params {
				s.PutByte(byte(p))
			}
			s.WriteU32(uint32(len(ft.Results)))
			for _, r := range ft.Results {
				s.PutByte(byte(r))
			}
		}
		w.WriteSection(SectionType, s.Bytes())
	}

	if len(m.Imports) > 0 {
		s := binary.NewWriter()
		s.WriteU32(uint32(len(m.Imports)))
		for _, imp := range m.Imports {
			s.WriteName(imp.Module)
			s.WriteName(imp.Name)
			s.PutByte(byte(imp.Kind))
			switch imp.Kind {
			case KindFunc:
				s.WriteU32(imp.TypeIdx)
			case KindTable:
				s.PutByte(byte(FuncRef))
				writeLimits(s, *imp.Table)
			case KindMemory:
				writeLimits(s, *imp.Memory)
			case KindGlobal:
				s.PutByte(byte(imp.Global.Type))
				if imp.Global.Mutable {
					s.PutByte(1)
				} else {
					s.PutByte(0)
				}
			}
		}
		w.WriteSection(SectionImport, s.Bytes())
	}

	if len(m.Funcs) > 0 {
		s := binary.NewWriter()
		s.WriteU32(uint32(len(m.Funcs)))
		for _, idx := range m.Funcs {
			s.WriteU32(idx)
		}
		w.WriteSection(SectionFunction, s.Bytes())
	}

	if len(m.Memories) > 0 {
		s := binary.NewWriter()
		s.WriteU32(uint32(len(m.Memories)))
		for _, mem := range m.Memories {
			writeLimits(s, mem)
		}
		w.WriteSection(SectionMemory, s.Bytes())
	}

	if len(m.Globals) > 0 {
		s := binary.NewWriter()
		s.WriteU32(uint32(len(m.Globals)))
		for _, g := range m.Globals {
			s.PutByte(byte(g.Type))
			if g.Mutable {
				s.PutByte(1)
			} else {
				s.PutByte(0)
			}
			writeZeroInit(s, g.Type)
		}
		w.WriteSection(SectionGlobal, s.Bytes())
	}

	if len(m.Exports) > 0 {
		s := binary.NewWriter()
		s.WriteU32(uint32(len(m.Exports)))
		for _, e := range m.Exports {
			s.WriteName(e.Name)
			s.PutByte(byte(e.Kind))
			s.WriteU32(e.Index)
		}
		w.WriteSection(SectionExport, s.Bytes())
	}

	if m.Start != nil {
		s := binary.NewWriter()
		s.WriteU32(*m.Start)
		w.WriteSection(SectionStart, s.Bytes())
	}

	if len(m.Funcs) > 0 {
		s := binary.NewWriter()
		s.WriteU32(uint32(len(m.Funcs)))
		for range m.Funcs {
			// body size, zero locals, end
			s.WriteU32(2)
			s.WriteU32(0)
			s.PutByte(0x0b)
		}
		w.WriteSection(SectionCode, s.Bytes())
	}

	return w.Bytes()
}

func writeLimits(w *binary.Writer, l Limits) {
	if l.HasMax {
		w.PutByte(1)
		w.WriteU32(l.Min)
		w.WriteU32(l.Max)
	} else {
		w.PutByte(0)
		w.WriteU32(l.Min)
	}
}

func writeZeroInit(w *binary.Writer, vt ValType) {
	switch vt {
	case I32:
		w.PutByte(0x41)
		w.WriteS32(0)
	case I64:
		w.PutByte(0x42)
		w.WriteS32(0)
	case F32:
		w.PutByte(0x43)
		w.WriteBytes(make([]byte, 4))
	case F64:
		w.PutByte(0x44)
		w.WriteBytes(make([]byte, 8))
	default:
		w.PutByte(0xd0) // ref.null
		w.PutByte(byte(vt))
	}
	w.PutByte(0x0b)
}
