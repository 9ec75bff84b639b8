package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"courier-backend/internal/models"
	"courier-backend/pkg/utils"
)

// wireAmount decodes a money field leniently. Some upstream tenants
// import records from spreadsheets, and those rows arrive with amounts
// as strings ("$1,250.00", "50,5") rather than JSON numbers. It always
// marshals back as a plain number.
type wireAmount float64

func (a *wireAmount) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*a = wireAmount(utils.ParseAmount(raw))
	return nil
}

func (a wireAmount) MarshalJSON() ([]byte, error) {
	return json.Marshal(float64(a))
}

// RESTBackend speaks to an upstream HTTP API. The wire format uses
// camelCase field names and RFC 3339 timestamps; mapping to the domain
// types happens here so nothing above this layer sees wire shapes.
type RESTBackend struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func NewRESTBackend(baseURL, apiKey string, timeout time.Duration) *RESTBackend {
	return &RESTBackend{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: timeout},
	}
}

type wireClient struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"ownerId"`
	Name      string     `json:"name"`
	Phone     string     `json:"phone"`
	Email     string     `json:"email,omitempty"`
	Address   string     `json:"address,omitempty"`
	Notes     string     `json:"notes,omitempty"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

type wireService struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"ownerId"`
	ClientID    string     `json:"clientId"`
	Date        time.Time  `json:"date"`
	Pickup      string     `json:"pickup,omitempty"`
	Dropoff     string     `json:"dropoff,omitempty"`
	Description string     `json:"description,omitempty"`
	Cost        wireAmount `json:"cost"`
	DriverFee   wireAmount `json:"driverFee"`
	WaitingTime wireAmount `json:"waitingTime"`
	ExtraFee    wireAmount `json:"extraFee"`
	Status      string     `json:"status,omitempty"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type wireExpense struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"ownerId"`
	Category    string     `json:"category"`
	Description string     `json:"description,omitempty"`
	Amount      wireAmount `json:"amount"`
	Date        time.Time  `json:"date"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func clientToWire(c *models.Client) wireClient {
	return wireClient{
		ID: c.ID, OwnerID: c.OwnerID, Name: c.Name, Phone: c.Phone,
		Email: c.Email, Address: c.Address, Notes: c.Notes,
		DeletedAt: c.DeletedAt, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt,
	}
}

func clientFromWire(w wireClient) *models.Client {
	return &models.Client{
		ID: w.ID, OwnerID: w.OwnerID, Name: w.Name, Phone: w.Phone,
		Email: w.Email, Address: w.Address, Notes: w.Notes,
		DeletedAt: w.DeletedAt, CreatedAt: w.CreatedAt, UpdatedAt: w.UpdatedAt,
	}
}

func serviceToWire(s *models.ServiceRecord) wireService {
	return wireService{
		ID: s.ID, OwnerID: s.OwnerID, ClientID: s.ClientID, Date: s.Date,
		Pickup: s.Pickup, Dropoff: s.Dropoff, Description: s.Description,
		Cost: wireAmount(s.Cost), DriverFee: wireAmount(s.DriverFee),
		WaitingTime: wireAmount(s.WaitingTime), ExtraFee: wireAmount(s.ExtraFee),
		Status: s.Status,
		DeletedAt: s.DeletedAt, CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt,
	}
}

func serviceFromWire(w wireService) *models.ServiceRecord {
	return &models.ServiceRecord{
		ID: w.ID, OwnerID: w.OwnerID, ClientID: w.ClientID, Date: w.Date,
		Pickup: w.Pickup, Dropoff: w.Dropoff, Description: w.Description,
		Cost: float64(w.Cost), DriverFee: float64(w.DriverFee),
		WaitingTime: float64(w.WaitingTime), ExtraFee: float64(w.ExtraFee),
		Status: w.Status,
		DeletedAt: w.DeletedAt, CreatedAt: w.CreatedAt, UpdatedAt: w.UpdatedAt,
	}
}

func expenseToWire(e *models.ExpenseRecord) wireExpense {
	return wireExpense{
		ID: e.ID, OwnerID: e.OwnerID, Category: e.Category, Description: e.Description,
		Amount: wireAmount(e.Amount), Date: e.Date,
		DeletedAt: e.DeletedAt, CreatedAt: e.CreatedAt, UpdatedAt: e.UpdatedAt,
	}
}

func expenseFromWire(w wireExpense) *models.ExpenseRecord {
	return &models.ExpenseRecord{
		ID: w.ID, OwnerID: w.OwnerID, Category: w.Category, Description: w.Description,
		Amount: float64(w.Amount), Date: w.Date,
		DeletedAt: w.DeletedAt, CreatedAt: w.CreatedAt, UpdatedAt: w.UpdatedAt,
	}
}

func (b *RESTBackend) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	u := b.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if b.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.APIKey)
	}

	resp, err := b.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("remote: %s %s returned %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(msg))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func rangeQuery(ownerID string, start, end *time.Time) url.Values {
	q := url.Values{}
	q.Set("ownerId", ownerID)
	if start != nil {
		q.Set("from", start.Format(time.RFC3339))
	}
	if end != nil {
		q.Set("to", end.Format(time.RFC3339))
	}
	return q
}

func (b *RESTBackend) GetClients(ctx context.Context, ownerID string) ([]*models.Client, error) {
	q := url.Values{}
	q.Set("ownerId", ownerID)
	var wire []wireClient
	if err := b.do(ctx, http.MethodGet, "/clients", q, nil, &wire); err != nil {
		return nil, err
	}
	clients := make([]*models.Client, 0, len(wire))
	for _, w := range wire {
		clients = append(clients, clientFromWire(w))
	}
	return clients, nil
}

func (b *RESTBackend) SaveClient(ctx context.Context, c *models.Client) error {
	return b.do(ctx, http.MethodPut, "/clients/"+c.ID, nil, clientToWire(c), nil)
}

func (b *RESTBackend) DeleteClient(ctx context.Context, id string) error {
	return b.do(ctx, http.MethodDelete, "/clients/"+id, nil, nil, nil)
}

func (b *RESTBackend) GetServices(ctx context.Context, ownerID string, start, end *time.Time) ([]*models.ServiceRecord, error) {
	var wire []wireService
	if err := b.do(ctx, http.MethodGet, "/services", rangeQuery(ownerID, start, end), nil, &wire); err != nil {
		return nil, err
	}
	records := make([]*models.ServiceRecord, 0, len(wire))
	for _, w := range wire {
		records = append(records, serviceFromWire(w))
	}
	return records, nil
}

func (b *RESTBackend) SaveService(ctx context.Context, s *models.ServiceRecord) error {
	return b.do(ctx, http.MethodPut, "/services/"+s.ID, nil, serviceToWire(s), nil)
}

func (b *RESTBackend) UpdateService(ctx context.Context, s *models.ServiceRecord) error {
	return b.do(ctx, http.MethodPatch, "/services/"+s.ID, nil, serviceToWire(s), nil)
}

func (b *RESTBackend) DeleteService(ctx context.Context, id string) error {
	return b.do(ctx, http.MethodDelete, "/services/"+id, nil, nil, nil)
}

func (b *RESTBackend) GetExpenses(ctx context.Context, ownerID string, start, end *time.Time) ([]*models.ExpenseRecord, error) {
	var wire []wireExpense
	if err := b.do(ctx, http.MethodGet, "/expenses", rangeQuery(ownerID, start, end), nil, &wire); err != nil {
		return nil, err
	}
	expenses := make([]*models.ExpenseRecord, 0, len(wire))
	for _, w := range wire {
		expenses = append(expenses, expenseFromWire(w))
	}
	return expenses, nil
}

func (b *RESTBackend) SaveExpense(ctx context.Context, e *models.ExpenseRecord) error {
	return b.do(ctx, http.MethodPut, "/expenses/"+e.ID, nil, expenseToWire(e), nil)
}

func (b *RESTBackend) DeleteExpense(ctx context.Context, id string) error {
	return b.do(ctx, http.MethodDelete, "/expenses/"+id, nil, nil, nil)
}
