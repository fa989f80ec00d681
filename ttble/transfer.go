package ttble

import (
	"context"
	"encoding/binary"
	"io"
	"time"

	"github.com/dlenski/ttble-sync/internal/utils"
)

// Config carries the ambient knobs the engine needs: logging and retry
// pacing. Mirrors the teacher's actisense.Config shape (LogFunc,
// DebugLogRawMessageBytes) generalized to this protocol.
type Config struct {
	// LogFunc receives printf-style progress messages. Nil disables logging.
	LogFunc func(format string, args ...any)
	// DebugLogFrames logs every chunk exchanged on the data handle.
	DebugLogFrames bool

	// sleepFunc and nowFunc are overridable for tests; production code
	// leaves them nil and gets a context-aware timer wait / time.Now.
	sleepFunc func(ctx context.Context, d time.Duration)
	nowFunc   func() time.Time
}

func (c Config) logf(format string, args ...any) {
	if c.LogFunc != nil {
		c.LogFunc(format, args...)
	}
}

func (c Config) sleep(ctx context.Context, d time.Duration) {
	if c.sleepFunc != nil {
		c.sleepFunc(ctx, d)
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Engine drives the five file-transfer operations (§4.5) and the command
// channel (§4.4) against a single connected Transport. One Engine owns
// exactly one in-flight transfer at a time, by construction: its methods
// are synchronous and there is no internal goroutine fan-out, matching the
// single-threaded, strictly serialized model of §5.
type Engine struct {
	transport Transport
	dx        *demux
	cfg       Config
}

// NewEngine wires an Engine on top of transport.
func NewEngine(transport Transport, cfg Config) *Engine {
	return &Engine{
		transport: transport,
		dx:        newDemux(transport),
		cfg:       cfg,
	}
}

// SendCommand issues a raw 4-byte command for fileID and op, retrying per
// §4.4. Exposed so tests can drive the command channel directly; ReadFile/WriteFile/ListSubFiles/DeleteFile call it
// internally.
func (e *Engine) SendCommand(ctx context.Context, op opcode, fileID FileID) (int, error) {
	cmd, err := command(op, fileID)
	if err != nil {
		return 0, err
	}
	return sendCommand(ctx, e.transport, e.dx, e.cfg.sleep, cmd)
}

// ReadFile implements §4.5.1. It streams the device's file contents to
// sink, verifying each window's CRC-16/MODBUS trailer before acknowledging
// it. If limit is non-nil, the transfer requests early termination once at
// least *limit bytes have been written.
func (e *Engine) ReadFile(ctx context.Context, fileID FileID, sink io.Writer, limit *int) (err error) {
	if _, err = e.SendCommand(ctx, opRead, fileID); err != nil {
		return err
	}

	n, err := e.dx.awaitExpected(ctx, expectHandle(HandleLength), CommandAckTimeout)
	if err != nil {
		return err
	}
	lengthU64, ok := n.Integer()
	if !ok || len(n.Data) != 4 {
		return &ProtocolError{Msg: "expected 4-byte length on handle 0x28"}
	}
	length := int(uint32(lengthU64))

	var written int
	var counter uint32
	crc := NewCRC16()

	for windowStart := 0; windowStart < length; windowStart += Window {
		windowEnd := windowStart + Window
		if windowEnd > length {
			windowEnd = length
		}

		for j := windowStart; j < windowEnd; j += MTU {
			chunk, err := e.dx.awaitExpected(ctx, expectHandle(HandleData), CommandAckTimeout)
			if err != nil {
				return err
			}
			d := chunk.Data
			e.debugChunk(HandleData, d)

			remaining := windowEnd - j
			if remaining >= 1 && remaining <= MTU {
				// last chunk of the window: up to `remaining` data bytes,
				// then a 2-byte CRC trailer, possibly split across a
				// second 0x2b chunk.
				dataBytes := d
				if len(dataBytes) > remaining {
					dataBytes = dataBytes[:remaining]
				}
				if _, err := sink.Write(dataBytes); err != nil {
					return &TransportError{Op: "sink write", Err: err}
				}
				crc.Update(d)
				written += len(dataBytes)

				if remaining == MTU || remaining == MTU-1 {
					trailer, err := e.dx.awaitExpected(ctx, expectHandle(HandleData), CommandAckTimeout)
					if err != nil {
						return err
					}
					e.debugChunk(HandleData, trailer.Data)
					crc.Update(trailer.Data)
				}
			} else {
				if _, err := sink.Write(d); err != nil {
					return &TransportError{Op: "sink write", Err: err}
				}
				crc.Update(d)
				written += len(d)
			}
		}

		if crc.Digest() != 0 {
			return &CrcMismatch{Residue: crc.Digest()}
		}
		crc.Reset()
		counter++

		counterBytes := make([]byte, 4)
		binary.LittleEndian.PutUint32(counterBytes, counter)
		if err := e.transport.Write(ctx, HandlePacing, counterBytes, false); err != nil {
			return &TransportError{Op: "pacing ack", Err: err}
		}

		if limit != nil && written >= *limit {
			if err := e.transport.Write(ctx, HandlePacing, []byte{0, 0, 0, 0}, false); err != nil {
				return &TransportError{Op: "early termination sentinel", Err: err}
			}
			break
		}
	}

	if _, err := e.dx.awaitExpected(ctx, expectInteger(HandleCommand, 0), CommandAckTimeout); err != nil {
		return err
	}
	return nil
}

// WriteFile implements §4.5.2. src must yield exactly length bytes.
// expectEnd controls whether the final window's pacing echo is awaited;
// some device firmware completes certain targets (e.g. the assistance
// blob) without sending it.
func (e *Engine) WriteFile(ctx context.Context, fileID FileID, src io.Reader, length uint32, expectEnd bool) error {
	if _, err := e.SendCommand(ctx, opWrite, fileID); err != nil {
		return err
	}

	lengthBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(lengthBytes, length)
	if err := e.transport.Write(ctx, HandleLength, lengthBytes, true); err != nil {
		return &TransportError{Op: "write length", Err: err}
	}

	buf := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(src, buf); err != nil {
			return &TransportError{Op: "read source", Err: err}
		}
	}

	var counter uint32
	crc := NewCRC16()
	total := int(length)

	for windowStart := 0; windowStart < total; windowStart += Window {
		windowEnd := windowStart + Window
		if windowEnd > total {
			windowEnd = total
		}

		for j := windowStart; j < windowEnd; j += MTU {
			end := j + MTU
			if end > windowEnd {
				end = windowEnd
			}
			out := append([]byte(nil), buf[j:end]...)
			crc.Update(out)

			if end >= windowEnd {
				trailer := make([]byte, 2)
				binary.LittleEndian.PutUint16(trailer, crc.Digest())
				out = append(out, trailer...)
			}

			first := out
			if len(first) > MTU {
				first = out[:MTU]
			}
			if err := e.transport.Write(ctx, HandleData, first, false); err != nil {
				return &TransportError{Op: "write data chunk", Err: err}
			}
			e.debugChunk(HandleData, first)
			if len(out) > MTU {
				rest := out[MTU:]
				if err := e.transport.Write(ctx, HandleData, rest, false); err != nil {
					return &TransportError{Op: "write data chunk tail", Err: err}
				}
				e.debugChunk(HandleData, rest)
			}
		}

		crc.Reset()
		counter++
		isFinalWindow := windowEnd >= total

		if !isFinalWindow || expectEnd {
			counterVal := uint64(counter)
			if _, err := e.dx.awaitExpected(ctx, expectInteger(HandlePacing, counterVal), PacingEchoTimeout); err != nil {
				return err
			}
		}

		if isFinalWindow {
			break
		}
	}

	if _, err := e.dx.awaitExpected(ctx, expectInteger(HandleCommand, 0), CommandAckTimeout); err != nil {
		return err
	}
	return nil
}

// ListSubFiles implements §4.5.3.
func (e *Engine) ListSubFiles(ctx context.Context, baseFileID FileID) ([]FileID, error) {
	if _, err := e.SendCommand(ctx, opList, baseFileID); err != nil {
		return nil, err
	}

	buf, err := e.drainDataUntilComplete(ctx, CommandAckTimeout)
	if err != nil {
		return nil, err
	}

	if len(buf)%2 != 0 || len(buf) < 2 {
		return nil, &ProtocolError{Msg: "list response is not a whole number of uint16 entries"}
	}
	counts := make([]uint16, len(buf)/2)
	for i := range counts {
		counts[i] = binary.LittleEndian.Uint16(buf[i*2 : i*2+2])
	}
	if int(counts[0])+1 != len(counts) {
		return nil, &ProtocolError{Msg: "list response declared count does not match payload length"}
	}

	result := make([]FileID, 0, len(counts)-1)
	for _, offset := range counts[1:] {
		result = append(result, fileIDFromSubOffset(baseFileID, offset))
	}
	return result, nil
}

// DeleteFile implements §4.5.4. The returned bytes are an opaque
// diagnostic payload; callers must not interpret them.
func (e *Engine) DeleteFile(ctx context.Context, fileID FileID) ([]byte, error) {
	if _, err := e.SendCommand(ctx, opDelete, fileID); err != nil {
		return nil, err
	}
	return e.drainDataUntilComplete(ctx, DeleteTimeout)
}

// drainDataUntilComplete accumulates 0x2b payloads until the terminal
// 0x25/integer==0 ack, used by both List and Delete. Each caller supplies
// its own per-notification timeout: List uses the 1s command-ack default,
// Delete uses the 20s delete-reply allowance, matching the differing
// defaults original_source/ttblue.py's rda() calls use in tt_list_sub_files
// versus tt_delete_file.
func (e *Engine) drainDataUntilComplete(ctx context.Context, timeout time.Duration) ([]byte, error) {
	var buf []byte
	for {
		n, err := e.dx.awaitExpected(ctx, expectation{}, timeout)
		if err != nil {
			return nil, err
		}
		switch n.Handle {
		case HandleData:
			buf = append(buf, n.Data...)
		case HandleCommand:
			if v, ok := n.Integer(); ok && v == 0 {
				return buf, nil
			}
			return nil, &ProtocolError{Msg: "unexpected command-channel notification while draining"}
		default:
			return nil, &ProtocolError{Msg: "unexpected notification handle while draining"}
		}
	}
}

func (e *Engine) debugChunk(h Handle, data []byte) {
	if e.cfg.DebugLogFrames {
		e.cfg.logf("# chunk handle=0x%02x bytes=%x (%s)\n", h, data, utils.FormatSpaces(data))
	}
}
