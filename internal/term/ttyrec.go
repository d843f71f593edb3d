package term

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

const ttyrecHeaderLen = 12

// DecodeTTYRec splits a ttyrec recording into playback frames. Each record is
// a little-endian header of seconds, microseconds and payload length followed
// by the payload. Frame delays are the gaps between record timestamps.
func DecodeTTYRec(data []byte) ([]PlaybackFrame, error) {
	if len(data) < ttyrecHeaderLen {
		return nil, errors.New("ttyrec data too short")
	}

	frames := make([]PlaybackFrame, 0, 16)
	offset := 0
	var lastTS int64
	for offset < len(data) {
		if offset+ttyrecHeaderLen > len(data) {
			return nil, fmt.Errorf("truncated ttyrec header at byte %d", offset)
		}
		sec := binary.LittleEndian.Uint32(data[offset : offset+4])
		usec := binary.LittleEndian.Uint32(data[offset+4 : offset+8])
		size := binary.LittleEndian.Uint32(data[offset+8 : offset+12])
		offset += ttyrecHeaderLen

		if size > uint32(len(data)-offset) {
			return nil, fmt.Errorf("truncated ttyrec payload at byte %d", offset)
		}
		chunk := append([]byte(nil), data[offset:offset+int(size)]...)
		offset += int(size)

		ts := int64(sec)*1_000_000 + int64(usec)
		var delay time.Duration
		if len(frames) > 0 && ts > lastTS {
			delay = time.Duration(ts-lastTS) * time.Microsecond
		}
		lastTS = ts
		frames = append(frames, PlaybackFrame{After: delay, Data: chunk})
	}
	return frames, nil
}

// ReadTTYRec loads and decodes a ttyrec file.
func ReadTTYRec(path string) ([]PlaybackFrame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	frames, err := DecodeTTYRec(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return frames, nil
}

// EncodeTTYRec writes frames back out as a ttyrec recording starting at start.
func EncodeTTYRec(start time.Time, frames []PlaybackFrame) []byte {
	var buf bytes.Buffer
	ts := start
	for _, f := range frames {
		ts = ts.Add(f.After)
		_ = writeTTYRecFrame(&buf, ts, f.Data)
	}
	return buf.Bytes()
}

func writeTTYRecFrame(w io.Writer, ts time.Time, data []byte) error {
	var hdr [ttyrecHeaderLen]byte
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(ts.Unix()))
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(ts.Nanosecond()/1000))
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(len(data)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}
