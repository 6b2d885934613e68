// Package audio provides WAV container encoding and generated test signals.
//
// Every audio blob the gateway emits is a self-contained WAV file (mono,
// 16-bit PCM) so that each streamed chunk is independently decodable.
package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Default audio parameters.
const (
	// DefaultSampleRate matches the synthesis model's output rate.
	DefaultSampleRate = 22050

	// headerSize is the size of a canonical PCM WAV header in bytes.
	headerSize = 44

	bitsPerSample   = 16
	bytesPerSample  = 2
	monoChannels    = 1
	pcmAudioFormat  = 1
	fmtChunkSize    = 16
	riffSizeExclude = 8
)

// Static errors.
var (
	ErrNoSamples         = errors.New("cannot encode empty audio samples")
	ErrInvalidSampleRate = errors.New("sample rate must be positive")
	ErrShortWAVData      = errors.New("WAV data too short")
	ErrNotRIFF           = errors.New("invalid WAV file: missing RIFF header")
	ErrNotWAVE           = errors.New("invalid WAV file: missing WAVE format")
	ErrMissingFmtChunk   = errors.New("invalid WAV file: missing fmt chunk")
	ErrMissingDataChunk  = errors.New("invalid WAV file: missing data chunk")
)

// wavHeader is the canonical 44-byte PCM WAV header.
type wavHeader struct {
	ChunkID       [4]byte
	ChunkSize     uint32
	Format        [4]byte
	Subchunk1ID   [4]byte
	Subchunk1Size uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte
	Subchunk2Size uint32
}

// EncodeWAV encodes mono PCM-16 samples into a complete WAV container.
func EncodeWAV(samples []int16, sampleRate int) ([]byte, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}

	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSampleRate, sampleRate)
	}

	dataSize := uint32(len(samples) * bytesPerSample)

	header := wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     headerSize - riffSizeExclude + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: fmtChunkSize,
		AudioFormat:   pcmAudioFormat,
		NumChannels:   monoChannels,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * monoChannels * bytesPerSample,
		BlockAlign:    monoChannels * bytesPerSample,
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	buf := bytes.NewBuffer(make([]byte, 0, headerSize+len(samples)*bytesPerSample))

	err := binary.Write(buf, binary.LittleEndian, header)
	if err != nil {
		return nil, fmt.Errorf("failed to write WAV header: %w", err)
	}

	err = binary.Write(buf, binary.LittleEndian, samples)
	if err != nil {
		return nil, fmt.Errorf("failed to write audio data: %w", err)
	}

	return buf.Bytes(), nil
}

// ValidateWAV checks that data carries a well-formed PCM WAV container
// without decoding the audio payload.
func ValidateWAV(data []byte) error {
	if len(data) < headerSize {
		return fmt.Errorf(
			"%w: need at least %d bytes, got %d",
			ErrShortWAVData, headerSize, len(data),
		)
	}

	if string(data[0:4]) != "RIFF" {
		return ErrNotRIFF
	}

	if string(data[8:12]) != "WAVE" {
		return ErrNotWAVE
	}

	if string(data[12:16]) != "fmt " {
		return ErrMissingFmtChunk
	}

	if string(data[36:40]) != "data" {
		return ErrMissingDataChunk
	}

	return nil
}

// Merge concatenates the PCM payloads of several canonical WAV blobs into a
// single container. All blobs must share the sample rate of the first one.
func Merge(blobs [][]byte) ([]byte, error) {
	if len(blobs) == 0 {
		return nil, ErrNoSamples
	}

	var (
		sampleRate uint32
		payload    []byte
	)

	for _, blob := range blobs {
		err := ValidateWAV(blob)
		if err != nil {
			return nil, err
		}

		blobRate := binary.LittleEndian.Uint32(blob[24:28])
		if sampleRate == 0 {
			sampleRate = blobRate
		} else if blobRate != sampleRate {
			return nil, fmt.Errorf(
				"%w: mixed sample rates %d and %d",
				ErrInvalidSampleRate, sampleRate, blobRate,
			)
		}

		dataSize := binary.LittleEndian.Uint32(blob[40:44])
		end := headerSize + int(dataSize)

		if end > len(blob) {
			end = len(blob)
		}

		payload = append(payload, blob[headerSize:end]...)
	}

	samples := make([]int16, len(payload)/bytesPerSample)
	for sampleIndex := range samples {
		samples[sampleIndex] = int16(
			binary.LittleEndian.Uint16(
				payload[sampleIndex*bytesPerSample : sampleIndex*bytesPerSample+bytesPerSample],
			),
		)
	}

	return EncodeWAV(samples, int(sampleRate))
}

// Duration returns the playback duration of a WAV blob in seconds.
func Duration(data []byte) (float64, error) {
	err := ValidateWAV(data)
	if err != nil {
		return 0, err
	}

	sampleRate := binary.LittleEndian.Uint32(data[24:28])
	if sampleRate == 0 {
		return 0, fmt.Errorf("%w: got 0", ErrInvalidSampleRate)
	}

	dataSize := binary.LittleEndian.Uint32(data[40:44])
	numSamples := dataSize / bytesPerSample

	return float64(numSamples) / float64(sampleRate), nil
}

// Tone generates a sine tone as PCM-16 samples. It backs the deterministic
// fallback audio used when the synthesis model is unavailable.
func Tone(frequencyHz float64, durationSeconds float64, sampleRate int) []int16 {
	numSamples := int(float64(sampleRate) * durationSeconds)
	samples := make([]int16, numSamples)

	for sampleIndex := range samples {
		instant := float64(sampleIndex) / float64(sampleRate)
		amplitude := math.Sin(2 * math.Pi * frequencyHz * instant)
		samples[sampleIndex] = int16(amplitude * math.MaxInt16)
	}

	return samples
}

// Silence generates silent PCM-16 samples, used as warmup input for the
// transcription model.
func Silence(durationSeconds float64, sampleRate int) []int16 {
	return make([]int16, int(float64(sampleRate)*durationSeconds))
}
