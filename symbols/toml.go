package symbols

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/dolrecomp/dolrecomp/rtype"
)

// tomlFile is the on-disk shape of a hand-edited symbol map: small and
// structured, the niche BurntSushi/toml fits (grounded on
// lookbusy1344/arm-emulator's own use of toml for its config file).
//
//	[[function]]
//	entry = "0x80003000"
//	end = "0x80003020"
//	name = "main"
//	return_type = "i32"
//	parameters = ["i32", "*u8"]
//
//	[[global]]
//	address = "0x80400000"
//	type = "i32"
//	name = "g_frameCount"
type tomlFile struct {
	Function []tomlFunction `toml:"function"`
	Global   []tomlGlobal   `toml:"global"`
}

type tomlFunction struct {
	Entry      string   `toml:"entry"`
	End        string   `toml:"end"`
	Name       string   `toml:"name"`
	ReturnType string   `toml:"return_type"`
	Parameters []string `toml:"parameters"`
}

type tomlGlobal struct {
	Address string `toml:"address"`
	Type    string `toml:"type"`
	Name    string `toml:"name"`
}

// LoadTOML parses a symbol map in the format above into a MapSource.
func LoadTOML(data []byte) (*MapSource, error) {
	var f tomlFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing symbol map: %w", err)
	}

	functions := make([]Function, 0, len(f.Function))
	for _, tf := range f.Function {
		entry, err := parseAddr(tf.Entry)
		if err != nil {
			return nil, fmt.Errorf("function %q: %w", tf.Name, err)
		}
		var end uint32
		if tf.End != "" {
			end, err = parseAddr(tf.End)
			if err != nil {
				return nil, fmt.Errorf("function %q: %w", tf.Name, err)
			}
		}
		params := make([]rtype.Type, 0, len(tf.Parameters))
		for _, p := range tf.Parameters {
			params = append(params, parseType(p))
		}
		functions = append(functions, Function{
			Entry:          entry,
			End:            end,
			Name:           tf.Name,
			ParameterTypes: params,
			ReturnType:     parseType(tf.ReturnType),
		})
	}

	globals := make([]Global, 0, len(f.Global))
	for _, tg := range f.Global {
		addr, err := parseAddr(tg.Address)
		if err != nil {
			return nil, fmt.Errorf("global %q: %w", tg.Name, err)
		}
		globals = append(globals, Global{Address: addr, Type: parseType(tg.Type), Name: tg.Name})
	}

	return NewMapSource(functions, globals)
}

func parseAddr(s string) (uint32, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return uint32(v), nil
}

func parseType(s string) rtype.Type {
	s = strings.TrimSpace(s)
	pointer := strings.HasPrefix(s, "*")
	if pointer {
		pointee := parseType(s[1:])
		return rtype.PointerTo(pointee)
	}
	switch s {
	case "i8":
		return rtype.I8
	case "u8":
		return rtype.U8
	case "i16":
		return rtype.I16
	case "u16":
		return rtype.U16
	case "i32":
		return rtype.I32
	case "u32":
		return rtype.U32
	case "f32":
		return rtype.F32
	case "f64":
		return rtype.F64
	case "void", "":
		return rtype.VoidT
	default:
		return rtype.UnknownT
	}
}
