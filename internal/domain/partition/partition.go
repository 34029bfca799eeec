// Package partition assigns alarm boxes to fire company territories.
//
// The assignment is first-match-wins: companies are scanned in input
// order over the pool of not-yet-assigned boxes, and the first company
// whose boundary contains a box claims it. Later companies never see a
// claimed box, so overlapping boundaries cannot double-count an
// incident. Boxes matching no territory stay unassigned; their
// incidents are ignored downstream.
package partition

import (
	"context"
	"fmt"

	"github.com/jlenander/firestat/internal/domain/geo"
	"github.com/jlenander/firestat/internal/domain/model"
)

// Partition is the immutable result of assigning alarm boxes to company
// territories. Once built it only serves lookups, so a single Partition
// is safe to share across period workers.
type Partition struct {
	companies  []string            // company names, input order
	codes      map[string][]string // company name -> claimed box codes
	owner      map[string]string   // box code -> company name
	unassigned []string            // box codes matching no territory
	skipped    []string            // box codes skipped for unusable coordinates
	tests      int                 // containment tests performed
}

type poolBox struct {
	code string
	pt   geo.Point
}

// Build assigns every usable alarm box to at most one company. All
// boundaries are validated before any assignment happens, so a
// malformed territory fails the build naming its company instead of
// silently matching nothing. Inputs are not mutated.
func Build(ctx context.Context, companies []model.FireCompany, boxes []model.AlarmBox) (*Partition, error) {
	p := &Partition{
		companies: make([]string, 0, len(companies)),
		codes:     make(map[string][]string, len(companies)),
		owner:     make(map[string]string, len(boxes)),
	}

	for _, c := range companies {
		if _, dup := p.codes[c.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateCompany, c.Name)
		}
		if err := c.Boundary.Validate(); err != nil {
			return nil, fmt.Errorf("%w: company %q: %v", ErrMalformedBoundary, c.Name, err)
		}
		p.companies = append(p.companies, c.Name)
		p.codes[c.Name] = nil
	}

	pool := make([]poolBox, 0, len(boxes))
	seen := make(map[string]struct{}, len(boxes))
	for _, b := range boxes {
		if _, dup := seen[b.Code]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateBox, b.Code)
		}
		seen[b.Code] = struct{}{}
		pt := b.Position()
		if !pt.Valid() {
			p.skipped = append(p.skipped, b.Code)
			continue
		}
		pool = append(pool, poolBox{code: b.Code, pt: pt})
	}

	for _, c := range companies {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("partition build cancelled: %w", ctx.Err())
		default:
		}

		var claimed []string
		kept := pool[:0]
		for _, b := range pool {
			p.tests++
			if c.Boundary.Contains(b.pt) {
				claimed = append(claimed, b.code)
				p.owner[b.code] = c.Name
			} else {
				kept = append(kept, b)
			}
		}
		pool = kept
		p.codes[c.Name] = claimed
	}

	for _, b := range pool {
		p.unassigned = append(p.unassigned, b.code)
	}
	return p, nil
}

// Companies returns company names in input order.
func (p *Partition) Companies() []string {
	return append([]string(nil), p.companies...)
}

// Codes returns the box codes claimed by a company, in box input order.
// A known company with no territory matches yields an empty slice; an
// unknown company yields nil.
func (p *Partition) Codes(company string) []string {
	claimed, ok := p.codes[company]
	if !ok {
		return nil
	}
	out := make([]string, len(claimed))
	copy(out, claimed)
	return out
}

// Owner returns the company a box code was assigned to.
func (p *Partition) Owner(code string) (string, bool) {
	company, ok := p.owner[code]
	return company, ok
}

// AssignedCodes returns every assigned box code, grouped by company in
// input order.
func (p *Partition) AssignedCodes() []string {
	out := make([]string, 0, len(p.owner))
	for _, company := range p.companies {
		out = append(out, p.codes[company]...)
	}
	return out
}

// Assigned returns the number of boxes claimed by some company.
func (p *Partition) Assigned() int {
	return len(p.owner)
}

// Unassigned returns box codes matching no company territory.
func (p *Partition) Unassigned() []string {
	return append([]string(nil), p.unassigned...)
}

// Skipped returns box codes dropped for unusable coordinates.
func (p *Partition) Skipped() []string {
	return append([]string(nil), p.skipped...)
}

// Tests returns the number of containment tests the build performed.
func (p *Partition) Tests() int {
	return p.tests
}
