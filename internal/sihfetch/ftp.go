package sihfetch

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jlaffaye/ftp"
)

// Conn is the slice of an FTP session the fetcher needs. Tests substitute
// an in-memory implementation.
type Conn interface {
	// List returns the file names present in the remote directory.
	List(path string) ([]string, error)
	// Retr copies the remote file into w.
	Retr(path string, w io.Writer) error
	Quit() error
}

// Dialer opens a Conn. One dial per fetch operation; nothing is pooled.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// FTPDialer dials the DATASUS public archive with anonymous login.
type FTPDialer struct {
	Host    string
	Timeout time.Duration
}

func (d *FTPDialer) Dial(ctx context.Context) (Conn, error) {
	timeout := d.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	c, err := ftp.Dial(d.Host,
		ftp.DialWithContext(ctx),
		ftp.DialWithTimeout(timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", d.Host, err)
	}
	if err := c.Login("anonymous", "anonymous"); err != nil {
		_ = c.Quit()
		return nil, fmt.Errorf("anonymous login to %s: %w", d.Host, err)
	}
	return &ftpConn{conn: c}, nil
}

type ftpConn struct {
	conn *ftp.ServerConn
}

func (c *ftpConn) List(path string) ([]string, error) {
	entries, err := c.conn.List(path)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.Type == ftp.EntryTypeFile {
			names = append(names, e.Name)
		}
	}
	return names, nil
}

func (c *ftpConn) Retr(path string, w io.Writer) error {
	resp, err := c.conn.Retr(path)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Close() }()
	_, err = io.Copy(w, resp)
	return err
}

func (c *ftpConn) Quit() error {
	return c.conn.Quit()
}
