package audio

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
)

// EncodeWAVPCM16LE wraps raw PCM16LE mono audio bytes in a WAV container.
func EncodeWAVPCM16LE(pcm []byte, sampleRate int) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeWAVPCM16LE(&buf, pcm, sampleRate); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeWAVPCM16LE(out io.Writer, pcm []byte, sampleRate int) error {
	const (
		numChannels   = 1
		bitsPerSample = 16
		audioFormat   = 1 // PCM
	)
	if sampleRate <= 0 {
		sampleRate = 16000
	}

	dataSize := uint32(len(pcm))
	byteRate := uint32(sampleRate * numChannels * bitsPerSample / 8)
	blockAlign := uint16(numChannels * bitsPerSample / 8)

	w := bufio.NewWriter(out)
	var err error
	writeStr := func(s string) {
		if err == nil {
			_, err = w.WriteString(s)
		}
	}
	writeBin := func(v any) {
		if err == nil {
			err = binary.Write(w, binary.LittleEndian, v)
		}
	}

	writeStr("RIFF")
	writeBin(uint32(36) + dataSize)
	writeStr("WAVE")

	writeStr("fmt ")
	writeBin(uint32(16))
	writeBin(uint16(audioFormat))
	writeBin(uint16(numChannels))
	writeBin(uint32(sampleRate))
	writeBin(byteRate)
	writeBin(blockAlign)
	writeBin(uint16(bitsPerSample))

	writeStr("data")
	writeBin(dataSize)
	if err == nil {
		_, err = w.Write(pcm)
	}
	if err != nil {
		return err
	}
	return w.Flush()
}
