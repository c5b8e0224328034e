// Package protocol implements the container file-sync protocol: a binary,
// message-framed conversation over a persistent websocket that converges a
// remote container's file system to a locally computed desired file set.
package protocol

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// MessageType discriminates the envelope payload.
type MessageType int32

const (
	TypeInitialized    MessageType = 1
	TypeNotInitialized MessageType = 2
	TypeGetFiles       MessageType = 3
	TypeFiles          MessageType = 4
	TypeSetFile        MessageType = 5
	TypeDeleteFile     MessageType = 6
)

func (t MessageType) String() string {
	switch t {
	case TypeInitialized:
		return "Initialized"
	case TypeNotInitialized:
		return "NotInitialized"
	case TypeGetFiles:
		return "GetFiles"
	case TypeFiles:
		return "Files"
	case TypeSetFile:
		return "SetFile"
	case TypeDeleteFile:
		return "DeleteFile"
	default:
		return fmt.Sprintf("MessageType(%d)", int32(t))
	}
}

// Envelope is the outer frame: a type tag and a nested encoded payload.
type Envelope struct {
	Type    MessageType
	Payload []byte
}

// FileEntry is one path/content pair inside a Files listing.
type FileEntry struct {
	Path string
	Data []byte
}

// Files is the container's current file listing.
type Files struct {
	Entries []FileEntry
}

// SetFile writes one file on the container.
type SetFile struct {
	Path  string
	Data  []byte
	Local bool
}

// DeleteFile removes one file on the container.
type DeleteFile struct {
	Path string
}

// Field numbers. The wire format is standard protobuf tag/value encoding,
// hand-marshalled with protowire; the schema is small enough that
// generated code would outweigh it.
const (
	envelopeFieldType    = 1
	envelopeFieldPayload = 2

	filesFieldEntry = 1

	entryFieldPath = 1
	entryFieldData = 2

	setFileFieldPath  = 1
	setFileFieldData  = 2
	setFileFieldLocal = 3

	deleteFileFieldPath = 1
)

// MarshalEnvelope encodes an envelope frame.
func MarshalEnvelope(e Envelope) []byte {
	var buf []byte
	buf = protowire.AppendTag(buf, envelopeFieldType, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(e.Type))
	if len(e.Payload) > 0 {
		buf = protowire.AppendTag(buf, envelopeFieldPayload, protowire.BytesType)
		buf = protowire.AppendBytes(buf, e.Payload)
	}
	return buf
}

// UnmarshalEnvelope decodes an envelope frame.
func UnmarshalEnvelope(data []byte) (Envelope, error) {
	var e Envelope
	err := eachField(data, func(num protowire.Number, typ protowire.Type, value []byte, varint uint64) error {
		switch num {
		case envelopeFieldType:
			if typ != protowire.VarintType {
				return fmt.Errorf("envelope type: unexpected wire type %v", typ)
			}
			e.Type = MessageType(varint)
		case envelopeFieldPayload:
			if typ != protowire.BytesType {
				return fmt.Errorf("envelope payload: unexpected wire type %v", typ)
			}
			e.Payload = value
		}
		return nil
	})
	return e, err
}

// MarshalSetFile encodes a SetFile payload.
func MarshalSetFile(m SetFile) []byte {
	var buf []byte
	buf = protowire.AppendTag(buf, setFileFieldPath, protowire.BytesType)
	buf = protowire.AppendString(buf, m.Path)
	if len(m.Data) > 0 {
		buf = protowire.AppendTag(buf, setFileFieldData, protowire.BytesType)
		buf = protowire.AppendBytes(buf, m.Data)
	}
	if m.Local {
		buf = protowire.AppendTag(buf, setFileFieldLocal, protowire.VarintType)
		buf = protowire.AppendVarint(buf, 1)
	}
	return buf
}

// UnmarshalSetFile decodes a SetFile payload.
func UnmarshalSetFile(data []byte) (SetFile, error) {
	var m SetFile
	err := eachField(data, func(num protowire.Number, typ protowire.Type, value []byte, varint uint64) error {
		switch num {
		case setFileFieldPath:
			m.Path = string(value)
		case setFileFieldData:
			m.Data = value
		case setFileFieldLocal:
			m.Local = varint != 0
		}
		return nil
	})
	return m, err
}

// MarshalDeleteFile encodes a DeleteFile payload.
func MarshalDeleteFile(m DeleteFile) []byte {
	var buf []byte
	buf = protowire.AppendTag(buf, deleteFileFieldPath, protowire.BytesType)
	buf = protowire.AppendString(buf, m.Path)
	return buf
}

// UnmarshalDeleteFile decodes a DeleteFile payload.
func UnmarshalDeleteFile(data []byte) (DeleteFile, error) {
	var m DeleteFile
	err := eachField(data, func(num protowire.Number, typ protowire.Type, value []byte, varint uint64) error {
		if num == deleteFileFieldPath {
			m.Path = string(value)
		}
		return nil
	})
	return m, err
}

// MarshalFiles encodes a Files listing.
func MarshalFiles(m Files) []byte {
	var buf []byte
	for _, entry := range m.Entries {
		var sub []byte
		sub = protowire.AppendTag(sub, entryFieldPath, protowire.BytesType)
		sub = protowire.AppendString(sub, entry.Path)
		if len(entry.Data) > 0 {
			sub = protowire.AppendTag(sub, entryFieldData, protowire.BytesType)
			sub = protowire.AppendBytes(sub, entry.Data)
		}
		buf = protowire.AppendTag(buf, filesFieldEntry, protowire.BytesType)
		buf = protowire.AppendBytes(buf, sub)
	}
	return buf
}

// UnmarshalFiles decodes a Files listing.
func UnmarshalFiles(data []byte) (Files, error) {
	var m Files
	err := eachField(data, func(num protowire.Number, typ protowire.Type, value []byte, varint uint64) error {
		if num != filesFieldEntry {
			return nil
		}
		var entry FileEntry
		entryErr := eachField(value, func(num protowire.Number, typ protowire.Type, value []byte, varint uint64) error {
			switch num {
			case entryFieldPath:
				entry.Path = string(value)
			case entryFieldData:
				entry.Data = value
			}
			return nil
		})
		if entryErr != nil {
			return entryErr
		}
		m.Entries = append(m.Entries, entry)
		return nil
	})
	return m, err
}

// eachField walks a protobuf-encoded buffer, invoking fn per field. Bytes
// fields pass their value; varint fields pass the decoded integer. Unknown
// wire types are skipped, keeping the decoder forward-compatible.
func eachField(data []byte, fn func(num protowire.Number, typ protowire.Type, value []byte, varint uint64) error) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("malformed frame: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return fmt.Errorf("malformed varint field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
			if err := fn(num, typ, nil, v); err != nil {
				return err
			}
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return fmt.Errorf("malformed bytes field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
			if err := fn(num, typ, v, 0); err != nil {
				return err
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return fmt.Errorf("malformed field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return nil
}
