package trace

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Category is a kind of runtime log line.
type Category uint8

const (
	CategoryOther Category = iota
	CategoryStart
	CategorySubCall
	CategoryMessage
	CategoryData
	CategoryReturn
	CategoryError
	CategorySuccess
	CategoryFailed
)

var categoryNames = [...]string{
	CategoryOther:   "other",
	CategoryStart:   "start",
	CategorySubCall: "sub_call",
	CategoryMessage: "message",
	CategoryData:    "data",
	CategoryReturn:  "return",
	CategoryError:   "error",
	CategorySuccess: "success",
	CategoryFailed:  "failed",
}

func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return fmt.Sprintf("category(%d)", uint8(c))
}

// IsInvoke reports whether the category opens a call scope.
func (c Category) IsInvoke() bool {
	return c == CategoryStart || c == CategorySubCall
}

// IsClose reports whether the category closes a call scope.
func (c Category) IsClose() bool {
	return c == CategorySuccess || c == CategoryFailed
}

func ParseCategory(s string) (Category, error) {
	for i, name := range categoryNames {
		if name == s {
			return Category(i), nil
		}
	}
	return CategoryOther, fmt.Errorf("unknown log category %q", s)
}

func (c Category) MarshalText() ([]byte, error) {
	if int(c) >= len(categoryNames) {
		return nil, fmt.Errorf("invalid log category %d", uint8(c))
	}
	return []byte(categoryNames[c]), nil
}

func (c *Category) UnmarshalText(data []byte) error {
	v, err := ParseCategory(string(data))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// EncodeMsgpack implements msgpack.CustomEncoder interface
func (c Category) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.EncodeString(c.String())
}

// DecodeMsgpack implements msgpack.CustomDecoder interface
func (c *Category) DecodeMsgpack(dec *msgpack.Decoder) error {
	s, err := dec.DecodeString()
	if err != nil {
		return err
	}
	return c.UnmarshalText([]byte(s))
}
