package crpe

import (
	"bytes"
	"compress/zlib"
	"io"
)

// Body encodings defined by the common rules. Raw ("") and ASCII bodies
// travel untouched; Mcoded7 packs 8-bit data into 7-bit bytes; the
// zlib variant deflates before packing.

// EncodeBody applies the named encoding to a property body.
func EncodeBody(data []byte, encoding string) ([]byte, error) {
	switch encoding {
	case "", EncodingASCII:
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil
	case EncodingMcoded7:
		return Mcoded7Encode(data), nil
	case EncodingZlibMcoded7:
		var buf bytes.Buffer
		w := zlib.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return Mcoded7Encode(buf.Bytes()), nil
	default:
		return nil, ErrEncodingUnknown
	}
}

// DecodeBody reverses the encoding named by the header's mutualEncoding
// field.
func DecodeBody(header, body []byte) ([]byte, error) {
	switch encoding := HeaderFieldString(header, KeyMutualEncoding); encoding {
	case "", EncodingASCII:
		out := make([]byte, len(body))
		copy(out, body)
		return out, nil
	case EncodingMcoded7:
		return Mcoded7Decode(body)
	case EncodingZlibMcoded7:
		deflated, err := Mcoded7Decode(body)
		if err != nil {
			return nil, err
		}
		r, err := zlib.NewReader(bytes.NewReader(deflated))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	default:
		return nil, ErrEncodingUnknown
	}
}

// Mcoded7Encode packs 8-bit data into 7-bit bytes: each group of up to
// seven data bytes is preceded by one byte collecting their high bits,
// most significant position first.
func Mcoded7Encode(data []byte) []byte {
	out := make([]byte, 0, len(data)+(len(data)+6)/7)
	for start := 0; start < len(data); start += 7 {
		end := start + 7
		if end > len(data) {
			end = len(data)
		}
		group := data[start:end]

		var msb byte
		for i, b := range group {
			if b&0x80 != 0 {
				msb |= 1 << (6 - i)
			}
		}
		out = append(out, msb)
		for _, b := range group {
			out = append(out, b&0x7F)
		}
	}
	return out
}

// Mcoded7Decode is the inverse of Mcoded7Encode. A group byte with its
// own high bit set, or a dangling group byte with no data, fails.
func Mcoded7Decode(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(data))
	for start := 0; start < len(data); start += 8 {
		end := start + 8
		if end > len(data) {
			end = len(data)
		}
		group := data[start:end]
		if len(group) < 2 || group[0]&0x80 != 0 {
			return nil, ErrMcoded7
		}
		msb := group[0]
		for i, b := range group[1:] {
			if b&0x80 != 0 {
				return nil, ErrMcoded7
			}
			if msb&(1<<(6-i)) != 0 {
				b |= 0x80
			}
			out = append(out, b)
		}
	}
	return out, nil
}
