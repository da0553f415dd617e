// Package framestore reads and writes sequences of affinity field frames.
//
// An archive is a fixed header followed by one record per frame. Each
// record is a uint32 payload length and the payload: the frame's values as
// little-endian float32 in the archive's storage layout, optionally zstd
// compressed.
package framestore

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/klauspost/compress/zstd"

	"pafoverlay/internal/models"
)

const (
	magic   = "PAFZ"
	version = 1

	flagZstd = 1 << 0

	headerSize = 28
	// offset of the frame count inside the header
	countOffset = 8
)

// ErrFormat is returned for archives that cannot be decoded
var ErrFormat = errors.New("framestore: malformed archive")

// Header describes every frame in an archive
type Header struct {
	Frames   int
	Height   int
	Width    int
	Channels int
	Layout   models.Layout

	// Compressed selects zstd payloads
	Compressed bool
}

// frameValues is the number of values in one frame
func (h Header) frameValues() int {
	return h.Height * h.Width * h.Channels
}

func (h Header) validate() error {
	if h.Height <= 0 || h.Width <= 0 || h.Channels <= 0 {
		return fmt.Errorf("%w: dimensions %dx%dx%d", ErrFormat, h.Height, h.Width, h.Channels)
	}
	switch h.Layout {
	case models.ChannelsLast, models.ChannelsFirst, models.ColumnMajor:
	default:
		return fmt.Errorf("%w: unknown layout %d", ErrFormat, int(h.Layout))
	}
	return nil
}

func (h Header) marshal() []byte {
	buf := make([]byte, headerSize)
	copy(buf[0:4], magic)
	binary.LittleEndian.PutUint16(buf[4:6], version)
	var flags uint16
	if h.Compressed {
		flags |= flagZstd
	}
	binary.LittleEndian.PutUint16(buf[6:8], flags)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(h.Frames))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(h.Height))
	binary.LittleEndian.PutUint32(buf[16:20], uint32(h.Width))
	binary.LittleEndian.PutUint32(buf[20:24], uint32(h.Channels))
	buf[24] = byte(h.Layout)
	return buf
}

func unmarshalHeader(buf []byte) (Header, error) {
	if len(buf) < headerSize || string(buf[0:4]) != magic {
		return Header{}, fmt.Errorf("%w: bad magic", ErrFormat)
	}
	if v := binary.LittleEndian.Uint16(buf[4:6]); v != version {
		return Header{}, fmt.Errorf("%w: unsupported version %d", ErrFormat, v)
	}
	flags := binary.LittleEndian.Uint16(buf[6:8])
	h := Header{
		Frames:     int(binary.LittleEndian.Uint32(buf[8:12])),
		Height:     int(binary.LittleEndian.Uint32(buf[12:16])),
		Width:      int(binary.LittleEndian.Uint32(buf[16:20])),
		Channels:   int(binary.LittleEndian.Uint32(buf[20:24])),
		Layout:     models.Layout(buf[24]),
		Compressed: flags&flagZstd != 0,
	}
	return h, h.validate()
}

// Writer appends frames to an archive file
type Writer struct {
	file   *os.File
	w      *bufio.Writer
	header Header
	enc    *zstd.Encoder
	raw    []byte
	frames int
}

// Create starts a new archive at path. The frame count in header is
// ignored; Close records how many frames were written.
func Create(path string, header Header) (*Writer, error) {
	header.Frames = 0
	if err := header.validate(); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive: %w", err)
	}
	wr := &Writer{
		file:   f,
		w:      bufio.NewWriter(f),
		header: header,
		raw:    make([]byte, 4*header.frameValues()),
	}
	if header.Compressed {
		wr.enc, err = zstd.NewWriter(nil,
			zstd.WithEncoderConcurrency(1),
			zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("zstd encoder: %w", err)
		}
	}
	if _, err := wr.w.Write(header.marshal()); err != nil {
		wr.abort()
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	return wr, nil
}

// WriteFrame appends one frame. The frame must match the archive
// dimensions; it is stored in the archive layout whatever its own.
func (wr *Writer) WriteFrame(frame *models.MultiChannelField) error {
	if err := frame.Validate(); err != nil {
		return err
	}
	h := wr.header
	if frame.Height != h.Height || frame.Width != h.Width || frame.Channels != h.Channels {
		return fmt.Errorf("%w: frame is %dx%dx%d, archive is %dx%dx%d", models.ErrInvalidShape,
			frame.Height, frame.Width, frame.Channels, h.Height, h.Width, h.Channels)
	}

	stored := frame
	if frame.Layout != h.Layout {
		stored = models.NewMultiChannelField(h.Height, h.Width, h.Channels, h.Layout)
		for y := 0; y < h.Height; y++ {
			for x := 0; x < h.Width; x++ {
				for c := 0; c < h.Channels; c++ {
					stored.Set(y, x, c, frame.At(y, x, c))
				}
			}
		}
	}
	for i, v := range stored.Data {
		binary.LittleEndian.PutUint32(wr.raw[4*i:], math.Float32bits(float32(v)))
	}

	payload := wr.raw
	if wr.enc != nil {
		payload = wr.enc.EncodeAll(wr.raw, nil)
	}

	var size [4]byte
	binary.LittleEndian.PutUint32(size[:], uint32(len(payload)))
	if _, err := wr.w.Write(size[:]); err != nil {
		return fmt.Errorf("failed to write frame %d: %w", wr.frames, err)
	}
	if _, err := wr.w.Write(payload); err != nil {
		return fmt.Errorf("failed to write frame %d: %w", wr.frames, err)
	}
	wr.frames++
	return nil
}

// Close flushes the archive and records the frame count
func (wr *Writer) Close() error {
	if wr.file == nil {
		return nil
	}
	defer wr.abort()
	if err := wr.w.Flush(); err != nil {
		return fmt.Errorf("failed to flush archive: %w", err)
	}
	var count [4]byte
	binary.LittleEndian.PutUint32(count[:], uint32(wr.frames))
	if _, err := wr.file.WriteAt(count[:], countOffset); err != nil {
		return fmt.Errorf("failed to write frame count: %w", err)
	}
	return nil
}

func (wr *Writer) abort() {
	if wr.enc != nil {
		wr.enc.Close()
		wr.enc = nil
	}
	if wr.file != nil {
		wr.file.Close()
		wr.file = nil
	}
}

// Reader gives random access to the frames of an archive
type Reader struct {
	file    *os.File
	header  Header
	offsets []int64
	sizes   []uint32
	dec     *zstd.Decoder
}

// Open reads the header and frame index of the archive at path
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	r := &Reader{file: f}
	if err := r.readIndex(); err != nil {
		f.Close()
		return nil, err
	}
	if r.header.Compressed {
		r.dec, err = zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("zstd decoder: %w", err)
		}
	}
	return r, nil
}

func (r *Reader) readIndex() error {
	buf := make([]byte, headerSize)
	if _, err := io.ReadFull(r.file, buf); err != nil {
		return fmt.Errorf("%w: short header: %v", ErrFormat, err)
	}
	h, err := unmarshalHeader(buf)
	if err != nil {
		return err
	}
	r.header = h

	info, err := r.file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat archive: %w", err)
	}
	fileSize := info.Size()

	offset := int64(headerSize)
	var size [4]byte
	for i := 0; i < h.Frames; i++ {
		if _, err := r.file.ReadAt(size[:], offset); err != nil {
			return fmt.Errorf("%w: frame %d: %v", ErrFormat, i, err)
		}
		n := binary.LittleEndian.Uint32(size[:])
		if offset+4+int64(n) > fileSize {
			return fmt.Errorf("%w: frame %d length %d runs past end of file", ErrFormat, i, n)
		}
		r.offsets = append(r.offsets, offset+4)
		r.sizes = append(r.sizes, n)
		offset += 4 + int64(n)
	}
	return nil
}

// Header returns the archive header
func (r *Reader) Header() Header {
	return r.header
}

// Frames returns the number of frames in the archive
func (r *Reader) Frames() int {
	return len(r.offsets)
}

// Frame decodes frame i
func (r *Reader) Frame(i int) (*models.MultiChannelField, error) {
	if i < 0 || i >= len(r.offsets) {
		return nil, fmt.Errorf("frame %d out of range [0, %d)", i, len(r.offsets))
	}
	payload := make([]byte, r.sizes[i])
	if _, err := r.file.ReadAt(payload, r.offsets[i]); err != nil {
		return nil, fmt.Errorf("%w: frame %d: %v", ErrFormat, i, err)
	}
	if r.dec != nil {
		raw, err := r.dec.DecodeAll(payload, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd decode: %w", err)
		}
		payload = raw
	}

	h := r.header
	n := h.frameValues()
	if len(payload) != 4*n {
		return nil, fmt.Errorf("%w: frame %d holds %d bytes, want %d", ErrFormat, i, len(payload), 4*n)
	}
	frame := models.NewMultiChannelField(h.Height, h.Width, h.Channels, h.Layout)
	for j := range frame.Data {
		frame.Data[j] = float64(math.Float32frombits(binary.LittleEndian.Uint32(payload[4*j:])))
	}
	return frame, nil
}

// Close releases the archive file and decoder
func (r *Reader) Close() error {
	if r.dec != nil {
		r.dec.Close()
	}
	return r.file.Close()
}
