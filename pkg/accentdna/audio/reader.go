package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// WAV format tags found in the fmt chunk.
const (
	formatPCM        = 0x0001
	formatIEEEFloat  = 0x0003
	formatExtensible = 0xFFFE
)

// wavFormat holds the format information from the fmt chunk
type wavFormat struct {
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// readRIFFHeader reads and validates the RIFF/WAVE header (12 bytes)
func readRIFFHeader(r io.Reader) error {
	var hdr struct {
		RIFF [4]byte
		Size uint32
		WAVE [4]byte
	}
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("reading RIFF header: %w", err)
	}
	if string(hdr.RIFF[:]) != "RIFF" || string(hdr.WAVE[:]) != "WAVE" {
		return errors.New("not a WAV/RIFF file")
	}
	return nil
}

// readFmtChunk reads the fmt chunk. For WAVE_FORMAT_EXTENSIBLE the real
// format tag is taken from the first two bytes of the sub-format GUID.
func readFmtChunk(r io.ReadSeeker, chunkSize uint32) (*wavFormat, error) {
	if chunkSize < 16 {
		return nil, fmt.Errorf("fmt chunk too small: %d bytes", chunkSize)
	}

	var raw struct {
		AudioFormat   uint16
		NumChannels   uint16
		SampleRate    uint32
		ByteRate      uint32
		BlockAlign    uint16
		BitsPerSample uint16
	}
	if err := binary.Read(r, binary.LittleEndian, &raw); err != nil {
		return nil, fmt.Errorf("reading fmt chunk: %w", err)
	}

	f := &wavFormat{
		AudioFormat:   raw.AudioFormat,
		NumChannels:   raw.NumChannels,
		SampleRate:    raw.SampleRate,
		BlockAlign:    raw.BlockAlign,
		BitsPerSample: raw.BitsPerSample,
	}

	remaining := int64(chunkSize) - 16
	if f.AudioFormat == formatExtensible && remaining >= 10 {
		// cbSize(2) validBits(2) channelMask(4) subFormat(16)
		ext := make([]byte, 10)
		if _, err := io.ReadFull(r, ext); err != nil {
			return nil, fmt.Errorf("reading fmt extension: %w", err)
		}
		f.AudioFormat = binary.LittleEndian.Uint16(ext[8:10])
		remaining -= 10
	}
	if remaining > 0 {
		if _, err := r.Seek(remaining, io.SeekCurrent); err != nil {
			return nil, fmt.Errorf("seeking past fmt extras: %w", err)
		}
	}
	return f, nil
}

// readDataChunk reads up to chunkSize bytes of PCM. Writers that stream to a
// pipe leave a placeholder size, so a short read is accepted and truncated to
// whole frames.
func readDataChunk(r io.Reader, chunkSize uint32, blockAlign int) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, int64(chunkSize)))
	if err != nil {
		return nil, fmt.Errorf("reading data chunk: %w", err)
	}
	if blockAlign > 0 {
		data = data[:len(data)/blockAlign*blockAlign]
	}
	return data, nil
}

// scanWavChunks walks the chunk list until both fmt and data are found.
func scanWavChunks(r io.ReadSeeker) (*wavFormat, []byte, error) {
	var (
		format    *wavFormat
		data      []byte
		foundData bool
	)

	for format == nil || !foundData {
		var hdr struct {
			ID   [4]byte
			Size uint32
		}
		if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, nil, fmt.Errorf("reading chunk header: %w", err)
		}

		switch string(hdr.ID[:]) {
		case "fmt ":
			f, err := readFmtChunk(r, hdr.Size)
			if err != nil {
				return nil, nil, err
			}
			format = f
		case "data":
			if format == nil {
				return nil, nil, errors.New("data chunk precedes fmt chunk")
			}
			d, err := readDataChunk(r, hdr.Size, int(format.BlockAlign))
			if err != nil {
				return nil, nil, err
			}
			data = d
			foundData = true
		default:
			// LIST, fact, junk and friends
			if _, err := r.Seek(int64(hdr.Size), io.SeekCurrent); err != nil {
				return nil, nil, fmt.Errorf("skipping chunk %q: %w", hdr.ID[:], err)
			}
		}

		if hdr.Size%2 == 1 {
			if _, err := r.Seek(1, io.SeekCurrent); err != nil {
				return nil, nil, fmt.Errorf("seeking pad byte: %w", err)
			}
		}
	}

	if format == nil {
		return nil, nil, errors.New("fmt chunk not found")
	}
	if !foundData {
		return nil, nil, errors.New("data chunk not found")
	}
	return format, data, nil
}

// toInt16 converts raw little-endian sample bytes to 16-bit samples.
func toInt16(format *wavFormat, data []byte) ([]int16, error) {
	bits := int(format.BitsPerSample)

	switch format.AudioFormat {
	case formatPCM:
		switch bits {
		case 8:
			out := make([]int16, len(data))
			for i, b := range data {
				out[i] = int16(int(b)-128) << 8
			}
			return out, nil
		case 16:
			out := make([]int16, len(data)/2)
			for i := range out {
				out[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
			}
			return out, nil
		case 24:
			out := make([]int16, len(data)/3)
			for i := range out {
				b := data[i*3:]
				v := int32(b[0])<<8 | int32(b[1])<<16 | int32(b[2])<<24
				out[i] = int16(v >> 16)
			}
			return out, nil
		case 32:
			out := make([]int16, len(data)/4)
			for i := range out {
				out[i] = int16(int32(binary.LittleEndian.Uint32(data[i*4:])) >> 16)
			}
			return out, nil
		}
	case formatIEEEFloat:
		switch bits {
		case 32:
			out := make([]int16, len(data)/4)
			for i := range out {
				out[i] = floatToInt16(float64(math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))))
			}
			return out, nil
		case 64:
			out := make([]int16, len(data)/8)
			for i := range out {
				out[i] = floatToInt16(math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:])))
			}
			return out, nil
		}
	default:
		return nil, fmt.Errorf("unsupported WAV audio format tag 0x%04x", format.AudioFormat)
	}
	return nil, fmt.Errorf("unsupported bits per sample: %d", bits)
}

// DecodeWAV reads a RIFF/WAVE stream. Integer PCM (8/16/24/32-bit) and IEEE
// float are accepted; everything is converted to 16-bit samples. Any
// parsing failure is reported as ErrUnsupportedFormat.
func DecodeWAV(r io.ReadSeeker) (Waveform, error) {
	if err := readRIFFHeader(r); err != nil {
		return Waveform{}, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	format, data, err := scanWavChunks(r)
	if err != nil {
		return Waveform{}, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	if format.NumChannels == 0 || format.SampleRate == 0 {
		return Waveform{}, fmt.Errorf("%w: invalid fmt chunk (%d channels, %d Hz)",
			ErrUnsupportedFormat, format.NumChannels, format.SampleRate)
	}

	samples, err := toInt16(format, data)
	if err != nil {
		return Waveform{}, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	channels := int(format.NumChannels)
	samples = samples[:len(samples)/channels*channels]

	return Waveform{
		Samples:    samples,
		SampleRate: int(format.SampleRate),
		Channels:   channels,
	}, nil
}

// ReadWAV opens path and decodes it with DecodeWAV.
func ReadWAV(path string) (Waveform, error) {
	f, err := os.Open(path)
	if err != nil {
		return Waveform{}, err
	}
	defer f.Close()

	wf, err := DecodeWAV(f)
	if err != nil {
		return Waveform{}, fmt.Errorf("%s: %w", path, err)
	}
	return wf, nil
}
