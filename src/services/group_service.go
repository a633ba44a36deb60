package services

import (
	"context"
	"time"

	"github.com/username/moneyflow/backend/src/logger"
	"github.com/username/moneyflow/backend/src/models"
	"github.com/username/moneyflow/backend/src/processors"
	"github.com/username/moneyflow/backend/src/stream"
)

// ListUpdate is one emission of the live transactions list. Err is set
// when any branch's calculation failed; List is only meaningful when Err
// is nil.
type ListUpdate struct {
	List models.TransactionsList
	Err  error
}

type sectionResult struct {
	section models.Section
	err     error
}

type historyResult struct {
	items []models.ListItem
	err   error
}

// GroupService assembles the live transactions list: the upcoming and
// overdue due sections plus the day-grouped history, rejoined whenever any
// branch or the link records change.
type GroupService struct {
	calc  CalculateService
	links LinkRecordSource
	clock Clock
}

func NewGroupService(calc CalculateService, links LinkRecordSource, clock Clock) *GroupService {
	return &GroupService{calc: calc, links: links, clock: clock}
}

// StreamTransactionsList derives the live list from a transaction
// snapshot. Every link-record update restarts the derivation against the
// latest links (latest wins); within one derivation the three branches are
// joined with combine-latest semantics. Emissions are not debounced or
// deduplicated. Cancelling ctx tears down every branch.
func (s *GroupService) StreamTransactionsList(ctx context.Context, trns []models.Transaction) <-chan ListUpdate {
	out := make(chan ListUpdate)
	go func() {
		defer close(out)

		linksCh := s.links.FindAll(ctx)

		var (
			inner       <-chan ListUpdate
			cancelInner context.CancelFunc
		)
		defer func() {
			if cancelInner != nil {
				cancelInner()
			}
		}()

		for {
			select {
			case links, ok := <-linksCh:
				if !ok {
					linksCh = nil
					continue
				}
				if cancelInner != nil {
					cancelInner()
				}
				var innerCtx context.Context
				innerCtx, cancelInner = context.WithCancel(ctx)
				inner = s.derive(innerCtx, processors.Batch(trns, links))
			case update, ok := <-inner:
				if !ok {
					inner = nil
					continue
				}
				select {
				case out <- update:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// derive builds one run of the pipeline over a batched item snapshot. The
// same now is used for both due sections so every item of one emission is
// classified against the same instant.
func (s *GroupService) derive(ctx context.Context, items []models.ListItem) <-chan ListUpdate {
	s.reportUnclassified(items)

	now := s.clock.Now()
	upcoming := s.dueSection(ctx, items, processors.Upcoming, now)
	overdue := s.dueSection(ctx, items, processors.Overdue, now)
	history := s.history(ctx, items)

	out := make(chan ListUpdate)
	go func() {
		defer close(out)
		for combined := range stream.CombineLatest3(ctx, upcoming, overdue, history) {
			update := ListUpdate{
				List: models.TransactionsList{
					Upcoming: combined.A.section,
					Overdue:  combined.B.section,
					History:  combined.C.items,
				},
				Err: firstErr(combined.A.err, combined.B.err, combined.C.err),
			}
			select {
			case out <- update:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// dueSection keeps a live section over the items matching the due
// predicate at now: totals from the calculation collaborator (transfers
// never count toward due totals), items ordered soonest-first. The order
// is the same for both sections, it is not reversed for overdue.
func (s *GroupService) dueSection(
	ctx context.Context,
	items []models.ListItem,
	match func(models.TrnTime, time.Time) bool,
	now time.Time,
) <-chan sectionResult {
	var dueItems []models.ListItem
	for _, item := range items {
		if match(processors.ItemTime(item), now) {
			dueItems = append(dueItems, item)
		}
	}
	sorted := processors.SortItemsAscending(dueItems)

	// Only plain due transactions feed the totals; a due transfer stays in
	// the section's item list but moves money between own accounts and must
	// not inflate income or expense.
	var trns []models.Transaction
	for _, item := range dueItems {
		if single, ok := item.(models.TrnItem); ok {
			trns = append(trns, single.Trn)
		}
	}

	calc := s.calc.Calculate(ctx, CalcInput{Trns: trns, IncludeTransfers: false})
	out := make(chan sectionResult)
	go func() {
		defer close(out)
		for res := range calc {
			result := sectionResult{err: res.Err}
			if res.Err == nil {
				result.section = models.Section{
					Income:  res.Stats.Income,
					Expense: res.Stats.Expense,
					Items:   sorted,
				}
			}
			select {
			case out <- result:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// history joins one live sub-branch per calendar day, newest day first.
func (s *GroupService) history(ctx context.Context, items []models.ListItem) <-chan historyResult {
	byDay := processors.GroupByDay(processors.ActualItems(items))

	if len(byDay) == 0 {
		// Emit the empty history immediately: a silent branch would leave
		// the combine-latest join waiting forever and the whole list would
		// never appear.
		out := make(chan historyResult, 1)
		out <- historyResult{items: []models.ListItem{}}
		close(out)
		return out
	}

	days := processors.DaysDescending(byDay)
	dayChans := make([]<-chan historyResult, 0, len(days))
	for _, day := range days {
		dayChans = append(dayChans, s.historyDay(ctx, day, byDay[day]))
	}

	out := make(chan historyResult)
	go func() {
		defer close(out)
		for combined := range stream.CombineLatest(ctx, dayChans) {
			joined := historyResult{}
			for _, dayResult := range combined {
				if dayResult.err != nil && joined.err == nil {
					joined.err = dayResult.err
				}
				joined.items = append(joined.items, dayResult.items...)
			}
			select {
			case out <- joined:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// historyDay keeps one day's block live: a leading divider carrying the
// day's net cashflow (transfers included this time), then the day's items
// newest-first.
func (s *GroupService) historyDay(ctx context.Context, day time.Time, unsorted []models.ListItem) <-chan historyResult {
	var legs []models.Transaction
	for _, item := range unsorted {
		legs = append(legs, processors.ExtractTrns(item)...)
	}
	sorted := processors.SortItemsDescending(unsorted)

	calc := s.calc.Calculate(ctx, CalcInput{Trns: legs, IncludeTransfers: true})
	out := make(chan historyResult)
	go func() {
		defer close(out)
		for res := range calc {
			result := historyResult{err: res.Err}
			if res.Err == nil {
				items := make([]models.ListItem, 0, len(sorted)+1)
				items = append(items, models.DateDivider{Date: day, Cashflow: res.Stats.Balance})
				items = append(items, sorted...)
				result.items = items
			}
			select {
			case out <- result:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// reportUnclassified surfaces transactions that carry no usable time
// classification. They appear in no section; the count is the caller's
// data-quality signal.
func (s *GroupService) reportUnclassified(items []models.ListItem) {
	unclassified := 0
	for _, item := range items {
		t := processors.ItemTime(item)
		if !t.Actual() && !t.Due() {
			unclassified++
		}
	}
	if unclassified > 0 {
		logger.L.Warn("Excluding transactions without a usable time classification", "count", unclassified)
	}
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
