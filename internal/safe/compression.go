// internal/safe/compression.go
package safe

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
)

var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// CompressionOptions configures compression behavior
type CompressionOptions struct {
	// Minimum size in bytes before compressing
	MinSize int
	// Compression level (1=fastest, 4=best)
	Level int
	// Above this size content is compressed through the streaming API
	StreamingThreshold int64
}

func DefaultCompressionOptions() CompressionOptions {
	return CompressionOptions{
		MinSize:            1024,
		Level:              2,
		StreamingThreshold: 50 * 1024 * 1024,
	}
}

// compressionManager pools zstd encoders and decoders
type compressionManager struct {
	opts     CompressionOptions
	encoders sync.Pool
	decoders sync.Pool
}

func newCompressionManager(opts CompressionOptions) (*compressionManager, error) {
	level := zstd.EncoderLevelFromZstd(opts.Level)

	// fail early on bad options; the pools assume construction succeeds
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level), zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("creating encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("creating decoder: %w", err)
	}

	cm := &compressionManager{opts: opts}
	cm.encoders.New = func() any {
		enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(level), zstd.WithEncoderConcurrency(1))
		return enc
	}
	cm.decoders.New = func() any {
		dec, _ := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		return dec
	}
	cm.encoders.Put(enc)
	cm.decoders.Put(dec)
	return cm, nil
}

func (cm *compressionManager) shouldCompress(size int) bool {
	return size >= cm.opts.MinSize
}

// compress returns content unchanged when it is too small to bother with.
// The boolean reports whether compression happened.
func (cm *compressionManager) compress(content []byte) ([]byte, bool, error) {
	if !cm.shouldCompress(len(content)) {
		return content, false, nil
	}

	enc := cm.encoders.Get().(*zstd.Encoder)
	defer cm.encoders.Put(enc)

	if int64(len(content)) > cm.opts.StreamingThreshold {
		out, err := cm.compressStream(enc, content)
		return out, err == nil, err
	}
	return enc.EncodeAll(content, make([]byte, 0, len(content)/2)), true, nil
}

func (cm *compressionManager) compressStream(enc *zstd.Encoder, content []byte) ([]byte, error) {
	var buf bytes.Buffer
	enc.Reset(&buf)

	if _, err := io.Copy(enc, bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("streaming compression: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("finalizing compression: %w", err)
	}
	return buf.Bytes(), nil
}

// decompress passes through content that does not carry the zstd magic
func (cm *compressionManager) decompress(content []byte) ([]byte, error) {
	if len(content) < len(zstdMagic) || !bytes.Equal(content[:len(zstdMagic)], zstdMagic) {
		return content, nil
	}

	dec := cm.decoders.Get().(*zstd.Decoder)
	defer cm.decoders.Put(dec)

	if int64(len(content)) > cm.opts.StreamingThreshold {
		return cm.decompressStream(dec, content)
	}
	return dec.DecodeAll(content, nil)
}

func (cm *compressionManager) decompressStream(dec *zstd.Decoder, content []byte) ([]byte, error) {
	if err := dec.Reset(bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("resetting decoder: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, dec); err != nil {
		return nil, fmt.Errorf("streaming decompression: %w", err)
	}
	return buf.Bytes(), nil
}
