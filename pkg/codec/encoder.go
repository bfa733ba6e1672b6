package codec

import (
	"github.com/fxamacker/cbor/v2"
)

var encodeMode cbor.EncMode

func GetEncoder() (cbor.EncMode, error) {
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeUnix
	var err error

	if encodeMode == nil {
		encodeMode, err = opts.EncMode()
	}

	return encodeMode, err
}

// Encode 用统一的确定性编码模式序列化一条消息
func Encode(v any) ([]byte, error) {
	encoder, err := GetEncoder()
	if err != nil {
		return nil, err
	}

	return encoder.Marshal(v)
}

// Decode 反序列化一条消息
func Decode[T any](data []byte) (*T, error) {
	msg := new(T)

	if err := cbor.Unmarshal(data, msg); err != nil {
		return nil, err
	}

	return msg, nil
}
