package pkg

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/redcon"
	"go.uber.org/zap"
)

const (
	commandPing     = "ping"
	commandQuit     = "quit"
	commandOpen     = "open"
	commandDrop     = "drop"
	commandList     = "list"
	commandPut      = "put"
	commandBytes    = "bytes"
	commandSkip     = "skip"
	commandAlign    = "align"
	commandChunkPtr = "chunkptr"
	commandPos      = "pos"
	commandSeek     = "seek"
	commandPush     = "push"
	commandPop      = "pop"
	commandSize     = "size"
	commandMark     = "mark"
	commandPatch    = "patch"
	commandEmbed    = "embed"
	commandDump     = "dump"
	commandFlush    = "flush"
)

type statusReply string

type arityError string

func (e arityError) Error() string {
	return "wrong number of arguments for '" + string(e) + "' command"
}

var errUnknownScalarType = errors.New("unknown scalar type")

// commandArity counts the command name itself.
var commandArity = map[string]int{
	commandPing: 1, commandQuit: 1, commandList: 1,
	commandOpen: 2, commandDrop: 2, commandPos: 2, commandPush: 2, commandPop: 2,
	commandSize: 2, commandDump: 2,
	commandBytes: 3, commandSkip: 3, commandAlign: 3, commandSeek: 3, commandMark: 3,
	commandEmbed: 3, commandFlush: 3,
	commandPut: 4, commandChunkPtr: 4,
	commandPatch: 5,
}

// BinPackServer exposes a Workspace over the redis protocol so that an
// external build driver can compose artifacts command by command.
type BinPackServer struct {
	addr   string
	ws     *Workspace
	logger *zap.SugaredLogger
}

func NewBinPackServer(addr string, logger *zap.SugaredLogger, ws *Workspace) *BinPackServer {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &BinPackServer{
		addr:   addr,
		ws:     ws,
		logger: logger,
	}
}

func (c *BinPackServer) ListenAndServe() error {
	c.logger.Infof("listening on %v", c.addr)

	return redcon.ListenAndServe(c.addr, c.handler, c.accepter, c.closer)
}

func (c *BinPackServer) handler(conn redcon.Conn, cmd redcon.Command) {
	c.logger.Debugf("session %v: %s", conn.Context(), cmd.Args[0])

	reply, err := c.exec(cmd.Args)
	if err != nil {
		conn.WriteError("ERR " + err.Error())
		return
	}

	switch r := reply.(type) {
	case statusReply:
		conn.WriteString(string(r))
	case int64:
		conn.WriteInt64(r)
	case []byte:
		conn.WriteBulk(r)
	case []string:
		conn.WriteArray(len(r))
		for _, s := range r {
			conn.WriteBulkString(s)
		}
	default:
		conn.WriteNull()
	}

	if strings.EqualFold(string(cmd.Args[0]), commandQuit) {
		conn.Close()
	}
}

// exec runs one command against the workspace and returns its reply: a
// statusReply, int64, []byte, []string or nil.
func (c *BinPackServer) exec(args [][]byte) (interface{}, error) {
	name := strings.ToLower(string(args[0]))

	n, ok := commandArity[name]
	if !ok {
		return nil, errors.New("unknown command '" + string(args[0]) + "'")
	}
	if len(args) != n {
		return nil, arityError(name)
	}

	switch name {
	case commandPing:
		return statusReply("PONG"), nil
	case commandQuit:
		return statusReply("OK"), nil
	case commandList:
		return c.ws.Names(), nil
	case commandOpen:
		if err := c.ws.Create(string(args[1])); err != nil {
			return nil, err
		}
		return statusReply("OK"), nil
	case commandDrop:
		if c.ws.Drop(string(args[1])) {
			return int64(1), nil
		}
		return int64(0), nil
	case commandEmbed:
		pos, err := c.ws.Embed(string(args[1]), string(args[2]))
		if err != nil {
			return nil, err
		}
		return int64(pos), nil
	case commandFlush:
		size, err := c.ws.Flush(string(args[1]), string(args[2]))
		if err != nil {
			return nil, err
		}
		return int64(size), nil
	}

	var reply interface{}
	err := c.ws.Do(string(args[1]), func(w *BinaryWriter) error {
		var err error
		reply, err = c.execWriter(w, name, args[2:])
		return err
	})

	return reply, err
}

// execWriter runs a command on one writer. Commands that write check their
// end position against the workspace size limit before touching w.
func (c *BinPackServer) execWriter(w *BinaryWriter, name string, args [][]byte) (interface{}, error) {
	switch name {
	case commandPut:
		put, size, err := parseScalar(string(args[0]), string(args[1]))
		if err != nil {
			return nil, err
		}
		if err := c.ws.checkEnd(w.Position(), size); err != nil {
			return nil, err
		}
		put(w)
	case commandBytes:
		if err := c.ws.checkEnd(w.Position(), uint64(len(args[0]))); err != nil {
			return nil, err
		}
		w.WriteBytes(args[0])
	case commandSkip:
		n, err := parseUint(args[0], 32)
		if err != nil {
			return nil, err
		}
		if err := c.ws.checkEnd(w.Position(), n); err != nil {
			return nil, err
		}
		w.Skip(uint32(n))
	case commandAlign:
		n, err := parseUint(args[0], 32)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, ErrInvalidAlignment
		}
		var pad uint64
		if rem := uint64(w.Position()) % n; rem != 0 {
			pad = n - rem
		}
		if err := c.ws.checkEnd(w.Position(), pad); err != nil {
			return nil, err
		}
		if err := w.Align(uint32(n)); err != nil {
			return nil, err
		}
	case commandChunkPtr:
		tag, err := parseUint(args[0], 8)
		if err != nil {
			return nil, err
		}
		offset, err := parseUint(args[1], 32)
		if err != nil {
			return nil, err
		}
		if err := c.ws.checkEnd(w.Position(), 4); err != nil {
			return nil, err
		}
		if err := w.WriteChunkPointer(byte(tag), uint32(offset)); err != nil {
			return nil, err
		}
	case commandPos:
	case commandSeek:
		pos, err := parseUint(args[0], 32)
		if err != nil {
			return nil, err
		}
		if err := c.ws.checkEnd(uint32(pos), 0); err != nil {
			return nil, err
		}
		w.SetPosition(uint32(pos))
		return statusReply("OK"), nil
	case commandPush:
		return int64(w.PushPosition()), nil
	case commandPop:
		pos, err := w.PopPosition()
		if err != nil {
			return nil, err
		}
		return int64(pos), nil
	case commandSize:
		return int64(w.Size()), nil
	case commandMark:
		return int64(w.Mark(string(args[0]))), nil
	case commandPatch:
		off, ok := w.Label(string(args[0]))
		if !ok {
			return nil, errLabel(string(args[0]))
		}
		put, size, err := parseScalar(string(args[1]), string(args[2]))
		if err != nil {
			return nil, err
		}
		if err := c.ws.checkEnd(off, size); err != nil {
			return nil, err
		}
		w.PushPosition()
		w.SetPosition(off)
		put(w)
		if _, err := w.PopPosition(); err != nil {
			return nil, err
		}
		return statusReply("OK"), nil
	case commandDump:
		return w.Bytes(), nil
	}

	return int64(w.Position()), nil
}

func (c *BinPackServer) accepter(conn redcon.Conn) bool {
	id := uuid.NewString()
	conn.SetContext(id)
	c.logger.Debugf("session %s opened from %v", id, conn.RemoteAddr())

	return true
}

func (c *BinPackServer) closer(conn redcon.Conn, err error) {
	if err != nil {
		c.logger.Debugf("session %v closed: %v", conn.Context(), err)
		return
	}
	c.logger.Debugf("session %v closed", conn.Context())
}

// parseScalar parses text as the named type and returns a function writing
// it in target order along with its encoded size.
func parseScalar(typ, text string) (func(w *BinaryWriter), uint64, error) {
	switch strings.ToLower(typ) {
	case "u8", "u16", "u32", "u64":
		bits, _ := strconv.Atoi(typ[1:])
		v, err := strconv.ParseUint(text, 0, bits)
		if err != nil {
			return nil, 0, err
		}
		size := uint64(bits / 8)
		switch bits {
		case 8:
			return func(w *BinaryWriter) { Write(w, uint8(v)) }, size, nil
		case 16:
			return func(w *BinaryWriter) { Write(w, uint16(v)) }, size, nil
		case 32:
			return func(w *BinaryWriter) { Write(w, uint32(v)) }, size, nil
		default:
			return func(w *BinaryWriter) { Write(w, v) }, size, nil
		}
	case "i8", "i16", "i32", "i64":
		bits, _ := strconv.Atoi(typ[1:])
		v, err := strconv.ParseInt(text, 0, bits)
		if err != nil {
			return nil, 0, err
		}
		size := uint64(bits / 8)
		switch bits {
		case 8:
			return func(w *BinaryWriter) { Write(w, int8(v)) }, size, nil
		case 16:
			return func(w *BinaryWriter) { Write(w, int16(v)) }, size, nil
		case 32:
			return func(w *BinaryWriter) { Write(w, int32(v)) }, size, nil
		default:
			return func(w *BinaryWriter) { Write(w, v) }, size, nil
		}
	case "f32":
		v, err := strconv.ParseFloat(text, 32)
		if err != nil {
			return nil, 0, err
		}
		return func(w *BinaryWriter) { Write(w, float32(v)) }, 4, nil
	case "f64":
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, 0, err
		}
		return func(w *BinaryWriter) { Write(w, v) }, 8, nil
	}

	return nil, 0, fmt.Errorf("%w '%s'", errUnknownScalarType, typ)
}

func parseUint(arg []byte, bits int) (uint64, error) {
	return strconv.ParseUint(string(arg), 0, bits)
}
