package chunker

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// wavInfo describes the PCM layout of a canonical RIFF/WAVE file, along
// with the byte offset and size of its data chunk.
type wavInfo struct {
	NumChannels   int
	SampleRate    int
	BitsPerSample int
	DataOffset    int64
	DataSize      int64
}

func (w wavInfo) bytesPerFrame() int {
	return w.NumChannels * (w.BitsPerSample / 8)
}

// readWAVInfo parses just enough of a RIFF/WAVE header to locate the fmt
// and data chunks. It assumes uncompressed PCM, the format ffmpeg produces
// for "-f wav -c:a pcm_s16le" output.
func readWAVInfo(path string) (wavInfo, error) {
	file, err := os.Open(path)
	if err != nil {
		return wavInfo{}, err
	}
	defer file.Close()

	var riffHeader [12]byte
	if _, err := io.ReadFull(file, riffHeader[:]); err != nil {
		return wavInfo{}, fmt.Errorf("read riff header: %w", err)
	}
	if string(riffHeader[0:4]) != "RIFF" || string(riffHeader[8:12]) != "WAVE" {
		return wavInfo{}, fmt.Errorf("not a RIFF/WAVE file")
	}

	var info wavInfo
	var sawFmt, sawData bool
	offset := int64(12)
	for {
		var chunkHeader [8]byte
		if _, err := io.ReadFull(file, chunkHeader[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			return wavInfo{}, fmt.Errorf("read chunk header: %w", err)
		}
		chunkID := string(chunkHeader[0:4])
		chunkSize := int64(binary.LittleEndian.Uint32(chunkHeader[4:8]))
		offset += 8

		switch chunkID {
		case "fmt ":
			body := make([]byte, chunkSize)
			if _, err := io.ReadFull(file, body); err != nil {
				return wavInfo{}, fmt.Errorf("read fmt chunk: %w", err)
			}
			if len(body) < 16 {
				return wavInfo{}, fmt.Errorf("fmt chunk too short")
			}
			info.NumChannels = int(binary.LittleEndian.Uint16(body[2:4]))
			info.SampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			info.BitsPerSample = int(binary.LittleEndian.Uint16(body[14:16]))
			sawFmt = true
		case "data":
			info.DataOffset = offset
			info.DataSize = chunkSize
			sawData = true
			// Data is the last chunk we need; stop scanning.
			if sawFmt {
				return info, nil
			}
			if _, err := file.Seek(chunkSize, io.SeekCurrent); err != nil {
				return wavInfo{}, fmt.Errorf("seek past data chunk: %w", err)
			}
		default:
			if _, err := file.Seek(chunkSize, io.SeekCurrent); err != nil {
				return wavInfo{}, fmt.Errorf("seek past chunk %q: %w", chunkID, err)
			}
		}
		offset += chunkSize
		if chunkSize%2 == 1 {
			if _, err := file.Seek(1, io.SeekCurrent); err != nil {
				return wavInfo{}, err
			}
			offset++
		}
	}

	if !sawFmt || !sawData {
		return wavInfo{}, fmt.Errorf("incomplete WAV file: fmt=%v data=%v", sawFmt, sawData)
	}
	return info, nil
}

// durationSeconds returns the playback duration implied by the data chunk
// size and the declared format, or 0 when the format declares no channels,
// bit depth or sample rate; Chunk treats a non-positive duration as
// ErrChunking.
func (w wavInfo) durationSeconds() float64 {
	bpf := w.bytesPerFrame()
	if bpf <= 0 || w.SampleRate <= 0 {
		return 0
	}
	frames := float64(w.DataSize) / float64(bpf)
	return frames / float64(w.SampleRate)
}

// writeWAVSlice writes a new WAV file containing frames [startFrame,
// endFrame) of the source, reusing the source's channel/rate/bit-depth
// format.
func writeWAVSlice(src *os.File, info wavInfo, startFrame, endFrame int64, destPath string) error {
	bpf := int64(info.bytesPerFrame())
	byteStart := info.DataOffset + startFrame*bpf
	byteCount := (endFrame - startFrame) * bpf
	if byteCount <= 0 {
		return fmt.Errorf("writeWAVSlice: non-positive byte count %d", byteCount)
	}

	if _, err := src.Seek(byteStart, io.SeekStart); err != nil {
		return fmt.Errorf("seek source: %w", err)
	}

	dest, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create chunk file: %w", err)
	}
	defer dest.Close()

	if err := writeWAVHeader(dest, info, byteCount); err != nil {
		return err
	}
	if _, err := io.CopyN(dest, src, byteCount); err != nil {
		return fmt.Errorf("copy frames: %w", err)
	}
	return nil
}

func writeWAVHeader(w io.Writer, info wavInfo, dataSize int64) error {
	byteRate := info.SampleRate * info.bytesPerFrame()
	blockAlign := info.bytesPerFrame()

	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+dataSize))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:24], uint16(info.NumChannels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(info.SampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], uint16(info.BitsPerSample))
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(dataSize))

	_, err := w.Write(header)
	return err
}
