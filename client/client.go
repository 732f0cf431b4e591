package client

import (
	"errors"
	"net"
	"sync"
)

// ErrEmptyMessage 空消息不会被守护进程转发。
var ErrEmptyMessage = errors.New("client: empty message")

// Client 向 logd 的某个套接字写入消息。
// unixgram 复用一个连接；unix 每次 Send 新建一条连接。
type Client struct {
	network string
	path    string
	mu      sync.Mutex
	conn    net.Conn
}

func Dial(network, path string) (*Client, error) {
	c := &Client{network: network, path: path}
	if network == "unixgram" {
		nc, err := net.Dial(network, path)
		if err != nil {
			return nil, err
		}
		c.conn = nc
		return c, nil
	}
	if network != "unix" {
		return nil, &net.OpError{Op: "dial", Net: network, Err: net.UnknownNetworkError(network)}
	}
	return c, nil
}

func (c *Client) Send(msg []byte) error {
	if len(msg) == 0 {
		return ErrEmptyMessage
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		_, err := c.conn.Write(msg)
		return err
	}
	nc, err := net.Dial(c.network, c.path)
	if err != nil {
		return err
	}
	defer nc.Close()
	_, err = nc.Write(msg)
	return err
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}
