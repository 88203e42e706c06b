package types

import (
	"fmt"
)

// SelectorKind is the variant of the function selector.
type SelectorKind uint8

const (
	SelectorDummy SelectorKind = iota
	SelectorByCode
	SelectorByName
)

// MaxSelectorLength is the max length of the selector payload (code or name).
const MaxSelectorLength = 32

const (
	selectorTagCode = 0x00
	selectorTagName = 0x01
)

/*
FunctionSelector names the entry point of the target protocol. Encoded form
(as hashed and transmitted) is:

	Dummy:  empty
	ByCode: 0x00 len code
	ByName: 0x01 len name

Selectors are matched by exact bytes, no normalization is applied.
*/
type FunctionSelector struct {
	kind    SelectorKind
	payload []byte
}

func DummySelector() FunctionSelector { return FunctionSelector{} }

func SelectorByCodeOf(code []byte) FunctionSelector {
	return FunctionSelector{kind: SelectorByCode, payload: append([]byte(nil), code...)}
}

func SelectorByNameOf(name string) FunctionSelector {
	return FunctionSelector{kind: SelectorByName, payload: []byte(name)}
}

func (s FunctionSelector) Kind() SelectorKind { return s.kind }

func (s FunctionSelector) IsDummy() bool { return s.kind == SelectorDummy }

// Code returns the selector code, nil unless kind is SelectorByCode.
func (s FunctionSelector) Code() []byte {
	if s.kind != SelectorByCode {
		return nil
	}
	return s.payload
}

// Name returns the selector name, empty unless kind is SelectorByName.
func (s FunctionSelector) Name() string {
	if s.kind != SelectorByName {
		return ""
	}
	return string(s.payload)
}

// Key returns value suitable as a map key for entry point lookup.
func (s FunctionSelector) Key() string {
	return string(s.Bytes())
}

func (s FunctionSelector) Validate() error {
	switch s.kind {
	case SelectorDummy:
		return nil
	case SelectorByCode, SelectorByName:
		if len(s.payload) > MaxSelectorLength {
			return fmt.Errorf("%w: selector is %d bytes, max %d", ErrSelectorTooBig, len(s.payload), MaxSelectorLength)
		}
		if len(s.payload) == 0 {
			return fmt.Errorf("%w: empty selector payload", ErrInvalidMethodSelector)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown selector kind %d", ErrInvalidMethodSelector, s.kind)
	}
}

// Bytes returns the encoded selector.
func (s FunctionSelector) Bytes() []byte {
	if s.kind == SelectorDummy {
		return []byte{}
	}
	tag := byte(selectorTagCode)
	if s.kind == SelectorByName {
		tag = selectorTagName
	}
	buf := make([]byte, 0, len(s.payload)+2)
	buf = append(buf, tag, byte(len(s.payload)))
	return append(buf, s.payload...)
}

func (s FunctionSelector) String() string {
	switch s.kind {
	case SelectorByCode:
		return fmt.Sprintf("code:%x", s.payload)
	case SelectorByName:
		return "name:" + string(s.payload)
	default:
		return "dummy"
	}
}

// ParseFunctionSelector decodes selector from its encoded form.
func ParseFunctionSelector(b []byte) (FunctionSelector, error) {
	if len(b) == 0 {
		return DummySelector(), nil
	}
	if len(b) < 2 {
		return FunctionSelector{}, fmt.Errorf("%w: selector too short", ErrInvalidMethodSelector)
	}
	var kind SelectorKind
	switch b[0] {
	case selectorTagCode:
		kind = SelectorByCode
	case selectorTagName:
		kind = SelectorByName
	default:
		return FunctionSelector{}, fmt.Errorf("%w: unknown selector tag 0x%02x", ErrInvalidMethodSelector, b[0])
	}
	if len(b)-2 > MaxSelectorLength {
		return FunctionSelector{}, fmt.Errorf("%w: selector is %d bytes, max %d", ErrSelectorTooBig, len(b)-2, MaxSelectorLength)
	}
	if n := int(b[1]); n != len(b)-2 {
		return FunctionSelector{}, fmt.Errorf("%w: selector length prefix %d does not match payload length %d", ErrInvalidMethodSelector, n, len(b)-2)
	}
	s := FunctionSelector{kind: kind, payload: append([]byte(nil), b[2:]...)}
	if err := s.Validate(); err != nil {
		return FunctionSelector{}, err
	}
	return s, nil
}
