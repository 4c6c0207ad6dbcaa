package cli

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shelf/internal/codec"
	"github.com/mesh-intelligence/shelf/pkg/types"
)

// itemOutput is one row of list output.
type itemOutput struct {
	Key   string `json:"key"`
	Kind  string `json:"kind"`
	Size  int    `json:"size"`
	Value any    `json:"value"`
}

// cookieOutput is one row of cookie list output.
type cookieOutput struct {
	Name     string     `json:"name"`
	Value    string     `json:"value"`
	Path     string     `json:"path"`
	Domain   string     `json:"domain,omitempty"`
	Expires  *time.Time `json:"expires,omitempty"`
	Secure   bool       `json:"secure"`
	HTTPOnly bool       `json:"http_only"`
	SameSite string     `json:"same_site"`
}

const valueColumnWidth = 48

func newListCmd(a *app) *cobra.Command {
	var backend string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List keys with their kinds and sizes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			b, err := parseBackend(backend)
			if err != nil {
				return err
			}
			sess, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer sess.closeInto(&err)

			if b == types.Cookie {
				return listCookies(cmd, a, sess)
			}
			return listItems(cmd, a, sess, b)
		},
	}
	backendFlag(cmd, &backend)
	return cmd
}

func listItems(cmd *cobra.Command, a *app, sess *session, b types.Backend) error {
	keys, err := sess.win.Keys(b)
	if err != nil {
		return storageError("list", err)
	}
	items := make([]itemOutput, 0, len(keys))
	texts := make([]string, 0, len(keys))
	for _, k := range keys {
		raw, err := sess.win.Raw(k, b)
		if err != nil {
			return storageError("list", err)
		}
		if !raw.Present {
			continue
		}
		v := codec.DecodeRaw(raw)
		items = append(items, itemOutput{Key: k, Kind: v.Kind().String(), Size: len(raw.Text), Value: v.Any()})
		texts = append(texts, raw.Text)
	}

	if a.flags.jsonMode {
		return writeJSON(cmd.OutOrStdout(), items)
	}
	tbl := table.NewWriter()
	tbl.SetOutputMirror(cmd.OutOrStdout())
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"key", "kind", "size", "value"})
	total := 0
	for i, it := range items {
		tbl.AppendRow(table.Row{it.Key, it.Kind, humanize.Bytes(uint64(it.Size)), truncate(texts[i], valueColumnWidth)})
		total += it.Size
	}
	tbl.AppendFooter(table.Row{humanize.Comma(int64(len(items))) + " keys", "", humanize.Bytes(uint64(total)), ""})
	tbl.Render()
	return nil
}

func listCookies(cmd *cobra.Command, a *app, sess *session) error {
	cookies, err := sess.shelf.Cookies()
	if err != nil {
		return storageError("list cookies", err)
	}
	out := make([]cookieOutput, len(cookies))
	for i, c := range cookies {
		out[i] = cookieOutput{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			SameSite: string(c.SameSite),
		}
		if !c.Expires.IsZero() {
			exp := c.Expires
			out[i].Expires = &exp
		}
	}

	if a.flags.jsonMode {
		return writeJSON(cmd.OutOrStdout(), out)
	}
	tbl := table.NewWriter()
	tbl.SetOutputMirror(cmd.OutOrStdout())
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"name", "value", "path", "domain", "expires", "flags"})
	for _, c := range out {
		expires := "session"
		if c.Expires != nil {
			expires = humanize.Time(*c.Expires)
		}
		flags := string(c.SameSite)
		if c.Secure {
			flags += " secure"
		}
		if c.HTTPOnly {
			flags += " httponly"
		}
		tbl.AppendRow(table.Row{c.Name, truncate(c.Value, valueColumnWidth), c.Path, c.Domain, expires, flags})
	}
	tbl.Render()
	return nil
}
