package domain

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Deposit is one deposit request as received over the wire
type Deposit struct {
	Location      string `validate:"required,url"`
	Username      string `header:"Authorization" validate:"required"`
	Password      string
	OnBehalfOf    string
	ContentType   string `header:"Content-Type" validate:"required,mediatype"`
	ContentLength int64  `header:"Content-Length" validate:"gte=-1"`
	ContentMD5    string
	Packaging     string
	Filename      string
	Slug          string
	Verbose       bool
	NoOp          bool
	UserAgent     string
	IPAddress     string

	// File is the spooled request body on local disk
	File string `validate:"required"`
}

// Open re-opens the uploaded bytes
func (d *Deposit) Open() (io.ReadCloser, error) {
	return os.Open(d.File)
}

// Size is the number of bytes received
func (d *Deposit) Size() (int64, error) {
	fi, err := os.Stat(d.File)
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// ResultKind discriminates what a deposit produced
type ResultKind uint8

const (
	ResultNone ResultKind = iota
	ResultItem
	ResultBitstream
)

// DepositResult is what an ingester produced
// collection deposits set Item, item deposits set Bitstream
type DepositResult struct {
	Item      *Item
	Bitstream *Bitstream
	Handle    string
	Treatment string
	MediaLink string
}

// Kind reports which member is set
func (r *DepositResult) Kind() ResultKind {
	switch {
	case r == nil:
		return ResultNone
	case r.Item != nil:
		return ResultItem
	case r.Bitstream != nil:
		return ResultBitstream
	default:
		return ResultNone
	}
}

// Verbose collects the processing log returned when the client asks for X-Verbose
type Verbose struct {
	lines []string
}

// Printf appends one line
func (v *Verbose) Printf(format string, a ...any) {
	if v == nil {
		return
	}
	v.lines = append(v.lines, fmt.Sprintf(format, a...))
}

// Elapsed appends the processing time since start
func (v *Verbose) Elapsed(start time.Time) {
	v.Printf("Total time for deposit processing: %d ms", time.Since(start).Milliseconds())
}

func (v *Verbose) String() string {
	if v == nil {
		return ""
	}
	return strings.Join(v.lines, "\n")
}
