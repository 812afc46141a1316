package aerospike

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	perr "asdelete/internal/platform/errors"
	cdomain "asdelete/internal/services/cleansets/domain"

	aero "github.com/aerospike/aerospike-client-go/v7"
)

// infoNode is the part of *aero.Node the set admin needs
type infoNode interface {
	RequestInfo(policy *aero.InfoPolicy, name ...string) (map[string]string, aero.Error)
	GetName() string
}

// SetAdmin lists sets through the info protocol and truncates them
type SetAdmin struct {
	nodes    func() []infoNode
	truncate func(p *aero.InfoPolicy, ns, set string, before *time.Time) aero.Error
}

var _ cdomain.SetAdmin = (*SetAdmin)(nil)

// NewSetAdmin builds a SetAdmin over c
func NewSetAdmin(c *aero.Client) *SetAdmin {
	return &SetAdmin{
		nodes: func() []infoNode {
			ns := c.GetNodes()
			out := make([]infoNode, 0, len(ns))
			for _, n := range ns {
				out = append(out, n)
			}
			return out
		},
		truncate: c.Truncate,
	}
}

func infoPolicy(ctx context.Context) *aero.InfoPolicy {
	p := aero.NewInfoPolicy()
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left > 0 {
			p.Timeout = left
		}
	}
	return p
}

// ListSets asks every node for its sets in namespace and sums object counts per set
func (a *SetAdmin) ListSets(ctx context.Context, namespace string) ([]cdomain.SetInfo, error) {
	nodes := a.nodes()
	if len(nodes) == 0 {
		return nil, perr.Connectionf("no cluster nodes available")
	}
	cmd := "sets/" + namespace
	seen := map[string]*cdomain.SetInfo{}
	for _, n := range nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		resp, err := n.RequestInfo(infoPolicy(ctx), cmd)
		if err != nil {
			return nil, perr.FromAerospikef(err, perr.ErrorCodeConnection, "info %s on %s", cmd, n.GetName())
		}
		for _, s := range ParseSets(resp[cmd]) {
			if s.Namespace != namespace {
				continue
			}
			if cur, ok := seen[s.Name]; ok {
				cur.Objects += s.Objects
				continue
			}
			cp := s
			seen[s.Name] = &cp
		}
	}
	out := make([]cdomain.SetInfo, 0, len(seen))
	for _, s := range seen {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Truncate removes every record of set, or only those last updated before before
func (a *SetAdmin) Truncate(ctx context.Context, namespace, set string, before *time.Time) error {
	if set == "" {
		return perr.InvalidArgf("refusing to truncate a whole namespace")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := a.truncate(infoPolicy(ctx), namespace, set, before); err != nil {
		return perr.FromAerospikef(err, perr.ErrorCodeRecordAction, "truncate %s.%s", namespace, set)
	}
	return nil
}

// ParseSets parses a "sets/<ns>" info response:
// "ns=test:set=users:objects=10:tombstones=0;ns=test:set=events:objects=3;"
// older servers spell the set key set_name and the count n_objects
func ParseSets(resp string) []cdomain.SetInfo {
	var out []cdomain.SetInfo
	for _, entry := range strings.Split(strings.TrimSpace(resp), ";") {
		if entry == "" {
			continue
		}
		var s cdomain.SetInfo
		for _, kv := range strings.Split(entry, ":") {
			k, v, ok := strings.Cut(kv, "=")
			if !ok {
				continue
			}
			switch k {
			case "ns", "ns_name":
				s.Namespace = v
			case "set", "set_name":
				s.Name = v
			case "objects", "n_objects":
				if n, err := strconv.ParseInt(v, 10, 64); err == nil {
					s.Objects = n
				}
			}
		}
		if s.Name != "" {
			out = append(out, s)
		}
	}
	return out
}
