package report

import (
	"context"
	"sort"
	"time"

	"github.com/example/pharmacy-storefront/internal/domain/order"
	"github.com/example/pharmacy-storefront/internal/readmodel"
)

// Stock thresholds for admin alerts
const (
	LowStockThreshold      = 10
	CriticalStockThreshold = 5
	DefaultTopN            = 5
)

// AdminOrder is the admin's view of an order, derived from the order read model on read
type AdminOrder struct {
	ID            string                         `json:"id"`
	UserID        string                         `json:"user_id"`
	CustomerName  string                         `json:"customer_name"`
	CustomerEmail string                         `json:"customer_email"`
	CustomerPhone string                         `json:"customer_phone"`
	Date          time.Time                      `json:"date"`
	Status        string                         `json:"status"`
	PaymentStatus string                         `json:"payment_status"`
	PaymentMethod string                         `json:"payment_method"`
	StatusText    string                         `json:"status_text"`
	Total         int                            `json:"total"`
	Items         []readmodel.OrderItemReadModel `json:"items"`
	Notes         string                         `json:"notes,omitempty"`
}

func AdminView(o *readmodel.OrderReadModel) AdminOrder {
	return AdminOrder{
		ID:            o.ID,
		UserID:        o.UserID,
		CustomerName:  o.Customer.Name,
		CustomerEmail: o.Customer.Email,
		CustomerPhone: o.Customer.Phone,
		Date:          o.CreatedAt,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		PaymentMethod: o.PaymentMethod,
		StatusText:    o.StatusText,
		Total:         o.Total,
		Items:         o.Items,
		Notes:         o.Notes,
	}
}

// StatusCounts counts orders per lifecycle status
type StatusCounts struct {
	Pending   int `json:"pending"`
	Paid      int `json:"paid"`
	Preparing int `json:"preparing"`
	Ready     int `json:"ready"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
	Total     int `json:"total"`
}

func CountStatuses(orders []*readmodel.OrderReadModel) StatusCounts {
	var c StatusCounts
	for _, o := range orders {
		switch order.Status(o.Status) {
		case order.StatusPending:
			c.Pending++
		case order.StatusPaid:
			c.Paid++
		case order.StatusPreparing:
			c.Preparing++
		case order.StatusReady:
			c.Ready++
		case order.StatusCompleted:
			c.Completed++
		case order.StatusCancelled:
			c.Cancelled++
		}
		c.Total++
	}
	return c
}

// Revenue sums the totals of paid, non-cancelled orders
func Revenue(orders []*readmodel.OrderReadModel) int {
	sum := 0
	for _, o := range orders {
		if o.PaymentStatus == string(order.PaymentPaid) && o.Status != string(order.StatusCancelled) {
			sum += o.Total
		}
	}
	return sum
}

type BestSeller struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Revenue  int    `json:"revenue"`
}

// BestSellers groups non-cancelled order lines by product name and returns the top n by quantity
func BestSellers(orders []*readmodel.OrderReadModel, n int) []BestSeller {
	byName := make(map[string]*BestSeller)
	for _, o := range orders {
		if o.Status == string(order.StatusCancelled) {
			continue
		}
		for _, item := range o.Items {
			b, ok := byName[item.Name]
			if !ok {
				b = &BestSeller{Name: item.Name}
				byName[item.Name] = b
			}
			b.Quantity += item.Quantity
			b.Revenue += item.Price * item.Quantity
		}
	}

	result := make([]BestSeller, 0, len(byName))
	for _, b := range byName {
		result = append(result, *b)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Quantity == result[j].Quantity {
			return result[i].Name < result[j].Name
		}
		return result[i].Quantity > result[j].Quantity
	})
	if n > 0 && len(result) > n {
		result = result[:n]
	}
	return result
}

// Stock alert levels
const (
	LevelLow      = "low"
	LevelCritical = "critical"
)

type StockAlert struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Stock     int    `json:"stock"`
	Level     string `json:"level"`
}

// LowStock flags products below the low threshold, lowest stock first
func LowStock(products []*readmodel.ProductReadModel) []StockAlert {
	alerts := make([]StockAlert, 0)
	for _, p := range products {
		if p.Stock >= LowStockThreshold {
			continue
		}
		level := LevelLow
		if p.Stock < CriticalStockThreshold {
			level = LevelCritical
		}
		alerts = append(alerts, StockAlert{ProductID: p.ID, Name: p.Name, Stock: p.Stock, Level: level})
	}
	sort.Slice(alerts, func(i, j int) bool {
		if alerts[i].Stock == alerts[j].Stock {
			return alerts[i].Name < alerts[j].Name
		}
		return alerts[i].Stock < alerts[j].Stock
	})
	return alerts
}

// Source is the read side the reports are computed from
type Source interface {
	ListAllOrders(ctx context.Context) []*readmodel.OrderReadModel
	ListProducts(ctx context.Context, categoryID string) []*readmodel.ProductReadModel
}

type Summary struct {
	Period        Period       `json:"period"`
	Counts        StatusCounts `json:"counts"`
	Revenue       int          `json:"revenue"`
	BestSellers   []BestSeller `json:"best_sellers"`
	LowStockCount int          `json:"low_stock_count"`
	CriticalCount int          `json:"critical_count"`
}

// Service computes admin views synchronously over the full collections
type Service struct {
	source Source
	now    func() time.Time
}

func NewService(source Source) *Service {
	return &Service{source: source, now: time.Now}
}

// Period resolves a named range against the current time
func (s *Service) Period(r Range, from, to string) (Period, error) {
	return NewPeriod(r, from, to, s.now())
}

// Orders lists admin views newest first, optionally filtered by status and period
func (s *Service) Orders(ctx context.Context, status string, period Period) []AdminOrder {
	orders := s.inPeriod(ctx, period)
	result := make([]AdminOrder, 0, len(orders))
	for _, o := range orders {
		if status != "" && o.Status != status {
			continue
		}
		result = append(result, AdminView(o))
	}
	return result
}

func (s *Service) Summary(ctx context.Context, period Period, topN int) Summary {
	if topN <= 0 {
		topN = DefaultTopN
	}
	orders := s.inPeriod(ctx, period)
	summary := Summary{
		Period:      period,
		Counts:      CountStatuses(orders),
		Revenue:     Revenue(orders),
		BestSellers: BestSellers(orders, topN),
	}
	for _, a := range s.LowStock(ctx) {
		summary.LowStockCount++
		if a.Level == LevelCritical {
			summary.CriticalCount++
		}
	}
	return summary
}

func (s *Service) LowStock(ctx context.Context) []StockAlert {
	return LowStock(s.source.ListProducts(ctx, ""))
}

func (s *Service) inPeriod(ctx context.Context, period Period) []*readmodel.OrderReadModel {
	all := s.source.ListAllOrders(ctx)
	result := make([]*readmodel.OrderReadModel, 0, len(all))
	for _, o := range all {
		if period.Contains(o.CreatedAt) {
			result = append(result, o)
		}
	}
	return result
}
