package services

import (
	"context"
	"sort"
	"time"

	"courier-backend/internal/models"
	"courier-backend/internal/state"
	"courier-backend/internal/timeutil"
)

// SummaryData is the owner-level financial rollup for a date range.
type SummaryData struct {
	Start        time.Time          `json:"start"`
	End          time.Time          `json:"end"`
	ServiceCount int                `json:"service_count"`
	Revenue      float64            `json:"revenue"`
	DriverFees   float64            `json:"driver_fees"`
	ExtraFees    float64            `json:"extra_fees"`
	ExpenseTotal float64            `json:"expense_total"`
	Net          float64            `json:"net"`
	ByCategory   map[string]float64 `json:"expenses_by_category"`
	TopClients   []ClientTotal      `json:"top_clients"`
}

type ClientTotal struct {
	ClientID     string  `json:"client_id"`
	Name         string  `json:"name"`
	ServiceCount int     `json:"service_count"`
	Revenue      float64 `json:"revenue"`
}

type ReportService struct {
	State *state.Manager
}

func NewReportService(st *state.Manager) *ReportService {
	return &ReportService{State: st}
}

// GetSummary aggregates services and expenses for the range. Amounts
// are clean floats by the time they reach this layer; string-encoded
// values from imported rows get normalized at the wire boundary.
func (s *ReportService) GetSummary(ctx context.Context, ownerID string, start, end time.Time) (*SummaryData, error) {
	startP, endP := &start, &end
	services, err := s.State.Services(ctx, ownerID, startP, endP)
	if err != nil {
		return nil, err
	}
	expenses, err := s.State.Expenses(ctx, ownerID, startP, endP)
	if err != nil {
		return nil, err
	}
	clients, err := s.State.Clients(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	names := make(map[string]string, len(clients))
	for _, c := range clients {
		names[c.ID] = c.Name
	}

	data := &SummaryData{
		Start:      start,
		End:        end,
		ByCategory: make(map[string]float64),
	}
	perClient := make(map[string]*ClientTotal)

	for _, sr := range services {
		cost := sr.Cost
		extra := sr.ExtraFee + sr.WaitingTime

		data.ServiceCount++
		data.Revenue += cost + extra
		data.DriverFees += sr.DriverFee
		data.ExtraFees += extra

		ct, ok := perClient[sr.ClientID]
		if !ok {
			ct = &ClientTotal{ClientID: sr.ClientID, Name: names[sr.ClientID]}
			perClient[sr.ClientID] = ct
		}
		ct.ServiceCount++
		ct.Revenue += cost + extra
	}

	for _, e := range expenses {
		data.ExpenseTotal += e.Amount
		data.ByCategory[e.Category] += e.Amount
	}

	data.Net = data.Revenue - data.DriverFees - data.ExpenseTotal

	data.TopClients = make([]ClientTotal, 0, len(perClient))
	for _, ct := range perClient {
		data.TopClients = append(data.TopClients, *ct)
	}
	sort.Slice(data.TopClients, func(i, j int) bool {
		return data.TopClients[i].Revenue > data.TopClients[j].Revenue
	})
	if len(data.TopClients) > 10 {
		data.TopClients = data.TopClients[:10]
	}
	return data, nil
}

// GetMonthlySummary is GetSummary over the calendar month containing t.
func (s *ReportService) GetMonthlySummary(ctx context.Context, ownerID string, t time.Time) (*SummaryData, error) {
	start, end := timeutil.MonthRange(t)
	return s.GetSummary(ctx, ownerID, start, end)
}

// GetClientHistory returns a client's services newest first, with the
// running revenue total.
func (s *ReportService) GetClientHistory(ctx context.Context, ownerID, clientID string) ([]*models.ServiceRecord, float64, error) {
	records, err := s.State.ServicesByClient(ctx, ownerID, clientID)
	if err != nil {
		return nil, 0, err
	}
	var total float64
	for _, sr := range records {
		total += sr.Cost + sr.ExtraFee + sr.WaitingTime
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Date.After(records[j].Date) })
	return records, total, nil
}
