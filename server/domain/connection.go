package domain

import "context"

type ConnectionID string

// Connection は物理的な接続を表します。
type Connection struct {
	ConnectionID ConnectionID
	transport    Transport
}

func NewConnection(id ConnectionID, transport Transport) *Connection {
	return &Connection{
		ConnectionID: id,
		transport:    transport,
	}
}

func (c *Connection) Write(ctx context.Context, data []byte) error {
	return c.transport.Write(ctx, data)
}

func (c *Connection) Read(ctx context.Context) ([]byte, error) {
	return c.transport.Read(ctx)
}

func (c *Connection) Close() {
	_ = c.transport.Close(1000, "")
}
