package eufy

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
)

// Tuya local protocol 3.3 framing. Every frame is
//
//	prefix(4) seq(4) cmd(4) length(4) [retcode(4)] payload crc(4) suffix(4)
//
// with length counting everything after the 16-byte header. The retcode
// word is only present on device-to-client frames. Payloads are AES-ECB
// encrypted with the 16-byte local key; commands other than DP_QUERY
// additionally carry a 15-byte version header ("3.3" + 12 zero bytes)
// in front of the ciphertext.
const (
	framePrefix uint32 = 0x000055AA
	frameSuffix uint32 = 0x0000AA55

	protocolVersion  = "3.3"
	versionHeaderLen = 15

	frameHeaderLen  = 16
	frameTrailerLen = 8
)

type commandType uint32

const (
	cmdControl   commandType = 0x07
	cmdStatus    commandType = 0x08
	cmdHeartbeat commandType = 0x09
	cmdDPQuery   commandType = 0x0A
)

// tuyaMessage is one decoded local-protocol frame.
type tuyaMessage struct {
	Seq     uint32
	Cmd     commandType
	RetCode uint32
	Payload []byte
}

var errIncompleteFrame = errors.New("incomplete frame")

// encodeFrame builds the wire form of msg, encrypting the payload with
// localKey.
func encodeFrame(msg tuyaMessage, localKey []byte) ([]byte, error) {
	payload := msg.Payload
	if len(payload) > 0 {
		encrypted, err := aesECBEncrypt(payload, localKey)
		if err != nil {
			return nil, fmt.Errorf("encrypt payload: %w", err)
		}
		payload = encrypted
		if msg.Cmd != cmdDPQuery {
			header := make([]byte, versionHeaderLen)
			copy(header, protocolVersion)
			payload = append(header, payload...)
		}
	}

	buf := &bytes.Buffer{}
	_ = binary.Write(buf, binary.BigEndian, framePrefix)
	_ = binary.Write(buf, binary.BigEndian, msg.Seq)
	_ = binary.Write(buf, binary.BigEndian, uint32(msg.Cmd))
	_ = binary.Write(buf, binary.BigEndian, uint32(len(payload)+frameTrailerLen))
	buf.Write(payload)
	_ = binary.Write(buf, binary.BigEndian, crc32.ChecksumIEEE(buf.Bytes()))
	_ = binary.Write(buf, binary.BigEndian, frameSuffix)
	return buf.Bytes(), nil
}

// frameDecoder reassembles frames from a TCP stream. Bytes before a
// valid prefix are discarded one at a time so a corrupted stream
// resynchronizes on the next frame boundary.
type frameDecoder struct {
	localKey []byte
	buffer   []byte
}

func newFrameDecoder(localKey []byte) *frameDecoder {
	return &frameDecoder{localKey: localKey}
}

func (d *frameDecoder) Feed(data []byte) ([]tuyaMessage, error) {
	d.buffer = append(d.buffer, data...)
	var messages []tuyaMessage
	for {
		msg, consumed, err := decodeFrame(d.buffer, d.localKey)
		if errors.Is(err, errIncompleteFrame) {
			return messages, nil
		}
		if err != nil {
			d.buffer = d.buffer[1:]
			return messages, err
		}
		d.buffer = d.buffer[consumed:]
		messages = append(messages, msg)
	}
}

func decodeFrame(data []byte, localKey []byte) (tuyaMessage, int, error) {
	if len(data) < frameHeaderLen {
		return tuyaMessage{}, 0, errIncompleteFrame
	}
	if binary.BigEndian.Uint32(data[0:4]) != framePrefix {
		return tuyaMessage{}, 0, errors.New("bad frame prefix")
	}
	seq := binary.BigEndian.Uint32(data[4:8])
	cmd := binary.BigEndian.Uint32(data[8:12])
	length := int(binary.BigEndian.Uint32(data[12:16]))
	if length < frameTrailerLen || length > 1<<20 {
		return tuyaMessage{}, 0, fmt.Errorf("implausible frame length %d", length)
	}
	total := frameHeaderLen + length
	if len(data) < total {
		return tuyaMessage{}, 0, errIncompleteFrame
	}

	crcOffset := total - frameTrailerLen
	if binary.BigEndian.Uint32(data[total-4:total]) != frameSuffix {
		return tuyaMessage{}, 0, errors.New("bad frame suffix")
	}
	if crc32.ChecksumIEEE(data[:crcOffset]) != binary.BigEndian.Uint32(data[crcOffset:crcOffset+4]) {
		return tuyaMessage{}, 0, errors.New("frame checksum mismatch")
	}

	body := data[frameHeaderLen:crcOffset]
	msg := tuyaMessage{Seq: seq, Cmd: commandType(cmd)}

	// Device frames lead with a retcode word.
	if len(body) >= 4 {
		msg.RetCode = binary.BigEndian.Uint32(body[:4])
		body = body[4:]
	}
	if bytes.HasPrefix(body, []byte(protocolVersion)) && len(body) >= versionHeaderLen {
		body = body[versionHeaderLen:]
	}
	if len(body) > 0 {
		plain, err := aesECBDecrypt(body, localKey)
		if err != nil {
			return tuyaMessage{}, 0, fmt.Errorf("decrypt payload: %w", err)
		}
		msg.Payload = plain
	}
	return msg, total, nil
}
