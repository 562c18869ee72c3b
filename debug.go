package rtnl

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/mdlayher/rtnl/nlenc"
	"github.com/rs/zerolog"
)

// Arguments used to create a debugger.
var debugArgs []string

func init() {
	// Is netlink debugging enabled?
	s := os.Getenv("NLDEBUG")
	if s == "" {
		return
	}

	debugArgs = strings.Split(s, ",")
}

// A debugger is used to provide debugging information about a netlink
// connection.  It is enabled by the NLDEBUG environment variable, for
// example NLDEBUG=level=2,format=mnl.
type debugger struct {
	Log    zerolog.Logger
	Level  int
	Format string

	w        io.Writer
	colorize bool
}

// newDebugger creates a debugger writing to w by parsing key=value
// arguments.
func newDebugger(w io.Writer, args []string) *debugger {
	d := &debugger{
		Level: 1,
		w:     w,
	}

	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		if !ok {
			continue
		}

		switch k {
		case "level":
			level, err := strconv.Atoi(v)
			if err != nil {
				panicf("rtnl: invalid NLDEBUG level: %q", a)
			}
			d.Level = level
		case "format":
			d.Format = v
		}
	}

	if f, ok := w.(*os.File); ok {
		d.colorize = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	d.Log = zerolog.New(zerolog.ConsoleWriter{
		Out:     w,
		NoColor: !d.colorize,
		PartsExclude: []string{
			zerolog.TimestampFieldName,
		},
	}).With().Str("component", "nl").Logger()

	return d
}

// debugf prints debugging information at the specified level, if d.Level
// is high enough to print the message.
func (d *debugger) debugf(level int, format string, v ...any) {
	if d.Level < level {
		return
	}

	d.Log.Debug().Msgf(format, v...)
}

// message prints m at the specified level.  dir is "send" or "recv".  With
// format=mnl the message is dumped in the libmnl table layout; hdrLen, when
// known, is the length of the family header preceding the attributes.
func (d *debugger) message(level int, dir string, m Message, hdrLen int) {
	if d.Level < level {
		return
	}

	d.Log.Debug().
		Str("dir", dir).
		Uint32("len", m.Header.Length).
		Stringer("type", m.Header.Type).
		Stringer("flags", m.Header.Flags).
		Uint32("seq", m.Header.Sequence).
		Uint32("pid", m.Header.PID).
		Msg("message")

	if d.Format == "mnl" {
		nlmsgFprintf(d.w, m, hdrLen, d.colorize)
	}
}

// nlmsgFprintfHeader prints the netlink message header to w.
func nlmsgFprintfHeader(w io.Writer, nlh Header) {
	fmt.Fprintf(w, "----------------\t------------------\n")
	fmt.Fprintf(w, "|  %010d  |\t| message length |\n", nlh.Length)
	fmt.Fprintf(w, "| %05d | %s%s%s%s |\t|  type | flags  |\n",
		nlh.Type,
		ternary(nlh.Flags&HeaderFlagsRequest != 0, "R", "-"),
		ternary(nlh.Flags&HeaderFlagsMulti != 0, "M", "-"),
		ternary(nlh.Flags&HeaderFlagsAcknowledge != 0, "A", "-"),
		ternary(nlh.Flags&HeaderFlagsEcho != 0, "E", "-"),
	)
	fmt.Fprintf(w, "|  %010d  |\t| sequence number|\n", nlh.Sequence)
	fmt.Fprintf(w, "|  %010d  |\t|     port ID    |\n", nlh.PID)
	fmt.Fprintf(w, "----------------\t------------------\n")
}

// nlmsgFprintf prints a single Message: its header, any family header of
// hdrLen bytes, and its attributes.  Error and done messages print their
// error code and extended acknowledgement attributes instead.
func nlmsgFprintf(w io.Writer, m Message, hdrLen int, colorize bool) {
	nlmsgFprintfHeader(w, m.Header)

	var attrs []byte
	switch m.Header.Type {
	case HeaderTypeError, HeaderTypeDone:
		if len(m.Data) < 4 {
			return
		}
		fprintfWord(w, m.Data[0:4], "     errno      ")

		off := 4
		if m.Header.Type == HeaderTypeError {
			switch {
			case len(m.Data) < off+nlmsgHeaderLen:
				return
			case m.Header.Flags&HeaderFlagsCapped != 0:
				off += nlmsgHeaderLen
			default:
				off += nlmsgAlign(int(nlenc.Uint32(m.Data[off : off+4])))
			}
		}
		if m.Header.Flags&HeaderFlagsAcknowledgeTLVs == 0 || off >= len(m.Data) {
			fmt.Fprintf(w, "----------------\t------------------\n")
			return
		}
		attrs = m.Data[off:]
	default:
		hl := min(nlmsgAlign(hdrLen), len(m.Data))
		for i := 0; i+4 <= hl; i += 4 {
			fprintfWord(w, m.Data[i:i+4], "  extra header  ")
		}
		attrs = m.Data[hl:]
	}

	fprintfAttributes(w, attrs, colorize)
	fmt.Fprintf(w, "----------------\t------------------\n")
}

// fprintfAttributes prints each attribute header in data followed by its
// payload, descending into nested attributes.
func fprintfAttributes(w io.Writer, data []byte, colorize bool) {
	for i := 0; i < len(data); {
		// Make sure there's at least a header's worth of data to read on each iteration.
		if len(data[i:]) < nlaHeaderLen {
			break
		}

		l := int(nlenc.Uint16(data[i : i+2]))
		t := nlenc.Uint16(data[i+2 : i+4])

		if colorize {
			fmt.Fprintf(w, "|\033[1;31m%05d|\033[1;32m%s%s|\033[1;34m%05d\033[0m|\t",
				l,
				ternary(t&Nested != 0, "N", "-"),
				ternary(t&NetByteOrder != 0, "B", "-"),
				t&attrTypeMask)
		} else {
			fmt.Fprintf(w, "|%05d|%s%s|%05d|\t",
				l,
				ternary(t&Nested != 0, "N", "-"),
				ternary(t&NetByteOrder != 0, "B", "-"),
				t&attrTypeMask)
		}
		fmt.Fprintf(w, "|len |flags| type|\n")

		// Zero or bogus lengths would never advance.
		if l < nlaHeaderLen {
			i += nlaHeaderLen
			continue
		}

		end := min(i+nlaAlign(l), len(data))
		payload := data[i+nlaHeaderLen : end]
		if t&Nested != 0 {
			fprintfAttributes(w, payload, colorize)
		} else {
			for j := 0; j+4 <= len(payload); j += 4 {
				fprintfData(w, payload[j:j+4])
			}
		}

		i = end
	}
}

// fprintfWord prints four bytes with a label.
func fprintfWord(w io.Writer, b []byte, label string) {
	fmt.Fprintf(w, "| %.2x %.2x %.2x %.2x  |\t|%s|\n", b[0], b[1], b[2], b[3], label)
}

// fprintfData prints four bytes of attribute payload, with printable
// characters alongside.
func fprintfData(w io.Writer, b []byte) {
	fmt.Fprintf(w, "| %.2x %.2x %.2x %.2x  |\t", b[0], b[1], b[2], b[3])
	fmt.Fprintf(w, "|      data      |")
	fmt.Fprintf(w, "\t %s %s %s %s\n",
		printable(b[0]), printable(b[1]), printable(b[2]), printable(b[3]))
}

func printable(c byte) string {
	return ternary(strconv.IsPrint(rune(c)), string(rune(c)), " ")
}

// ternary returns iftrue if cond is true, else iffalse.
func ternary(cond bool, iftrue string, iffalse string) string {
	if cond {
		return iftrue
	}
	return iffalse
}

// panicf is a helper to panic with formatted text.
func panicf(format string, a ...any) {
	panic(fmt.Sprintf(format, a...))
}
