package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"

	"github.com/voxmath/VoxMath-Engine/dataset"
)

// Client errors
var (
	ErrRemote     = errors.New("remote compute error")
	ErrBadReply   = errors.New("malformed reply batch")
	ErrAuthDenied = errors.New("server rejected authentication")
)

// Client is a connection to a compute Server.
type Client struct {
	conn  net.Conn
	conv  *dataset.Converter
	codec *dataset.IPCCodec
}

// Dial connects to a server. A non-empty token performs the auth
// handshake before the connection is usable.
func Dial(address, token string) (*Client, error) {
	conn, err := net.Dial("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", address, err)
	}

	c := &Client{
		conn:  conn,
		conv:  dataset.NewConverter(),
		codec: dataset.NewIPCCodec(),
	}

	if token != "" {
		if err := c.authenticate(token); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}
	return c, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) authenticate(token string) error {
	msg, err := json.Marshal(AuthMessage{Type: "auth", Token: token})
	if err != nil {
		return err
	}
	if err := WriteMessage(c.conn, msg); err != nil {
		return fmt.Errorf("send auth: %w", err)
	}

	reply, err := ReadMessage(c.conn)
	if err != nil {
		return fmt.Errorf("read auth reply: %w", err)
	}
	var resp AuthResponse
	if err := json.Unmarshal(reply, &resp); err != nil {
		return fmt.Errorf("parse auth reply: %w", err)
	}
	if !resp.Success {
		return fmt.Errorf("%w: %s", ErrAuthDenied, resp.Error)
	}
	return nil
}

// Arithmetic runs a named arithmetic operation on the server.
func (c *Client) Arithmetic(op string, x1, x2 dataset.Value) (dataset.Value, error) {
	return c.do(
		[]string{MetaOpKind, MetaOp}, []string{KindArithmetic, op},
		[]dataset.Named{{Name: "x1", Value: x1}, {Name: "x2", Value: x2}})
}

// Logic runs a named logical operation on the server.
func (c *Client) Logic(op string, operands ...dataset.Value) (dataset.Value, error) {
	named := make([]dataset.Named, len(operands))
	for i, v := range operands {
		named[i] = dataset.Named{Name: fmt.Sprintf("x%d", i+1), Value: v}
	}
	return c.do(
		[]string{MetaOpKind, MetaOp}, []string{KindLogic, op}, named)
}

// Evaluate runs an expression over named inputs on the server.
func (c *Client) Evaluate(expression string, vars map[string]dataset.Value) (dataset.Value, error) {
	named := make([]dataset.Named, 0, len(vars))
	for _, name := range []string{"A", "B", "C", "D", "E", "F", "G", "H"} {
		if v, ok := vars[name]; ok {
			named = append(named, dataset.Named{Name: name, Value: v})
		}
	}
	return c.do(
		[]string{MetaOpKind, MetaExpression}, []string{KindExpression, expression}, named)
}

func (c *Client) do(metaKeys, metaValues []string, operands []dataset.Named) (dataset.Value, error) {
	rec, err := c.conv.ToRecord(operands, metaKeys, metaValues)
	if err != nil {
		return dataset.Value{}, fmt.Errorf("encode request: %w", err)
	}
	payload, err := c.codec.Serialize(rec)
	rec.Release()
	if err != nil {
		return dataset.Value{}, fmt.Errorf("encode request: %w", err)
	}

	if err := WriteMessage(c.conn, payload); err != nil {
		return dataset.Value{}, fmt.Errorf("send request: %w", err)
	}
	replyData, err := ReadMessage(c.conn)
	if err != nil {
		return dataset.Value{}, fmt.Errorf("read reply: %w", err)
	}

	reply, err := c.codec.Deserialize(replyData)
	if err != nil {
		return dataset.Value{}, fmt.Errorf("decode reply: %w", err)
	}
	defer reply.Release()

	md := reply.Schema().Metadata()
	if status := metaValue(md.Keys(), md.Values(), MetaStatus); status != "ok" {
		return dataset.Value{}, fmt.Errorf("%w: %s", ErrRemote,
			metaValue(md.Keys(), md.Values(), MetaError))
	}

	results, err := c.conv.FromRecord(reply)
	if err != nil {
		return dataset.Value{}, fmt.Errorf("%w: %v", ErrBadReply, err)
	}
	for _, r := range results {
		if r.Name == "output" {
			return r.Value, nil
		}
	}
	return dataset.Value{}, fmt.Errorf("%w: no output column", ErrBadReply)
}
