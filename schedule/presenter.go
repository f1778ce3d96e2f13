/*
presenter.go - Retrieval-side transformation of schedule windows

PURPOSE:
  Builds the client-facing view of ongoing and upcoming windows. Three steps:
  1. Seed: when no window ends today or later and at least one crop group is
     known, create four consecutive 5-day windows starting today (first one
     ongoing, rest pending), pre-populated with a zeroed variety entry per
     catalog variety.
  2. Backfill: repair group entries whose variety list is empty by inserting
     zeroed entries for every catalog variety of that group. Running the
     backfill twice adds nothing the second time.
  3. Flatten: resolve references to display names and emit plain view structs
     with float64 quantities for JSON clients.

SEE ALSO:
  - store.go: Catalog and FarmerDirectory used for name resolution
*/
package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// CLIENT VIEW - flattened, display-ready
// =============================================================================

type ContributionView struct {
	BookingID  string  `json:"bookingId"`
	FarmerID   string  `json:"farmerId"`
	FarmerName string  `json:"farmerName"`
	Quantity   float64 `json:"quantity"`
}

type VarietyView struct {
	VarietyID   string             `json:"varietyId"`
	VarietyName string             `json:"varietyName"`
	Total       float64            `json:"total"`
	Completed   float64            `json:"completed"`
	Bookings    []ContributionView `json:"bookings"`
}

type GroupView struct {
	GroupID   string        `json:"groupId"`
	GroupName string        `json:"groupName"`
	Varieties []VarietyView `json:"varieties"`
}

type WindowView struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	StartDate time.Time   `json:"startDate"`
	EndDate   time.Time   `json:"endDate"`
	Status    string      `json:"status"`
	Groups    []GroupView `json:"groups"`
}

// =============================================================================
// PRESENTER
// =============================================================================

// Presenter materializes and flattens windows for retrieval.
type Presenter struct {
	Windows WindowStore
	Catalog Catalog
	Farmers FarmerDirectory

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

func NewPresenter(windows WindowStore, catalog Catalog, farmers FarmerDirectory) *Presenter {
	return &Presenter{Windows: windows, Catalog: catalog, Farmers: farmers, Now: time.Now}
}

// OngoingAndUpcoming returns the flattened view of every window whose end
// date is today or later, seeding defaults and backfilling variety lists
// on the way.
func (p *Presenter) OngoingAndUpcoming(ctx context.Context) ([]WindowView, error) {
	today := p.today()

	windows, err := p.Windows.ListEndingOnOrAfter(ctx, today)
	if err != nil {
		return nil, err
	}

	if len(windows) == 0 {
		if err := p.seedDefaults(ctx, today); err != nil {
			return nil, err
		}
		windows, err = p.Windows.ListEndingOnOrAfter(ctx, today)
		if err != nil {
			return nil, err
		}
	}

	for _, w := range windows {
		if err := p.backfill(ctx, w); err != nil {
			return nil, err
		}
	}

	views := make([]WindowView, 0, len(windows))
	for _, w := range windows {
		v, err := p.flatten(ctx, w)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

func (p *Presenter) today() time.Time {
	now := p.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// seedDefaults creates four consecutive 5-day windows starting today. Seeding
// only happens when at least one crop group exists; an empty catalog means
// there is nothing to plan yet.
func (p *Presenter) seedDefaults(ctx context.Context, today time.Time) error {
	groups, err := p.Catalog.ListGroups(ctx)
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		return nil
	}

	for i := 0; i < 4; i++ {
		start := today.AddDate(0, 0, i*5)
		end := start.AddDate(0, 0, 4)

		status := StatusPending
		if i == 0 {
			status = StatusOngoing
		}

		name := fmt.Sprintf("Schedule %d (%s - %s)",
			i+1, start.Format("02/01/2006"), end.Format("02/01/2006"))
		w := &Window{
			ID:        WindowID(uuid.NewString()),
			Name:      name,
			StartDate: start,
			EndDate:   end,
			Status:    status,
		}

		for _, g := range groups {
			entry := GroupEntry{GroupRef: g.Ref, GroupName: g.Name}
			varieties, err := p.Catalog.ListVarietiesOfGroup(ctx, g.Ref)
			if err != nil {
				return err
			}
			for _, v := range varieties {
				entry.Varieties = append(entry.Varieties, VarietyEntry{
					VarietyRef:  v.Ref,
					VarietyName: v.Name,
				})
			}
			w.Groups = append(w.Groups, entry)
		}

		if _, err := p.Windows.CreateIfAbsent(ctx, w); err != nil {
			return err
		}
	}
	return nil
}

// backfill inserts zeroed variety entries into any group entry whose variety
// list is empty, and persists when something was added. Entries that already
// exist are left alone, so running it again is a no-op.
func (p *Presenter) backfill(ctx context.Context, w *Window) error {
	changed := false
	for i := range w.Groups {
		g := &w.Groups[i]
		if len(g.Varieties) > 0 {
			continue
		}
		varieties, err := p.Catalog.ListVarietiesOfGroup(ctx, g.GroupRef)
		if err != nil {
			return err
		}
		for _, v := range varieties {
			g.Varieties = append(g.Varieties, VarietyEntry{
				VarietyRef:  v.Ref,
				VarietyName: v.Name,
			})
			changed = true
		}
	}
	if !changed {
		return nil
	}

	err := p.Windows.Save(ctx, w)
	if errors.Is(err, ErrConcurrentModification) {
		// A concurrent writer advanced the window; the repair is re-run on
		// the next retrieval, so a stale backfill is simply dropped.
		return nil
	}
	return err
}

func (p *Presenter) flatten(ctx context.Context, w *Window) (WindowView, error) {
	view := WindowView{
		ID:        string(w.ID),
		Name:      w.Name,
		StartDate: w.StartDate,
		EndDate:   w.EndDate,
		Status:    string(w.Status),
		Groups:    make([]GroupView, 0, len(w.Groups)),
	}

	for _, g := range w.Groups {
		groupName := g.GroupName
		if resolved, err := p.Catalog.LookupGroupName(ctx, g.GroupRef); err == nil && resolved != "" {
			groupName = resolved
		}
		if groupName == "" {
			groupName = unknownGroupName
		}

		gv := GroupView{
			GroupID:   string(g.GroupRef),
			GroupName: groupName,
			Varieties: make([]VarietyView, 0, len(g.Varieties)),
		}

		for _, v := range g.Varieties {
			varietyName := v.VarietyName
			if varietyName == "" {
				varietyName = unknownVarietyName
			}

			vv := VarietyView{
				VarietyID:   string(v.VarietyRef),
				VarietyName: varietyName,
				Total:       v.Total.InexactFloat64(),
				Completed:   v.Completed.InexactFloat64(),
				Bookings:    make([]ContributionView, 0, len(v.Contributions)),
			}

			for i, c := range v.Contributions {
				farmerName := ""
				if p.Farmers != nil {
					farmerName, _ = p.Farmers.LookupFarmerName(ctx, c.FarmerID)
				}
				if farmerName == "" {
					farmerName = fmt.Sprintf("Farmer %d", i+1)
				}
				vv.Bookings = append(vv.Bookings, ContributionView{
					BookingID:  string(c.BookingID),
					FarmerID:   string(c.FarmerID),
					FarmerName: farmerName,
					Quantity:   c.Quantity.InexactFloat64(),
				})
			}

			gv.Varieties = append(gv.Varieties, vv)
		}
		view.Groups = append(view.Groups, gv)
	}

	return view, nil
}
