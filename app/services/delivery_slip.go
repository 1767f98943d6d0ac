package services

import (
	"fmt"
	"strings"

	"YellowbellPOS/app/models"

	"github.com/skip2/go-qrcode"
	"gorm.io/gorm"
)

// DeliverySlip is what the rider carries: the order summary and a QR of it
type DeliverySlip struct {
	OrderNumber string `json:"orderNumber"`
	Text        string `json:"text"`
	QRCode      []byte `json:"qrCode"` // PNG
}

// DeliverySlip renders the slip for an order. size is the QR edge in pixels.
func (s *OrderService) DeliverySlip(orderID string, size int) (*DeliverySlip, error) {
	if size <= 0 {
		size = 256
	}

	var order *models.CustomerOrder
	var sale *models.SalesOrder
	err := s.WithReader(func(db *gorm.DB) error {
		var err error
		if order, err = customerOrderByID(db, orderID); err != nil {
			return err
		}
		sale, err = salesOrderByID(db, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}

	text := slipText(order, sale)
	qr, err := qrcode.New(text, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code: %w", err)
	}
	qr.DisableBorder = false
	png, err := qr.PNG(size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}

	return &DeliverySlip{OrderNumber: order.OrderNumber, Text: text, QRCode: png}, nil
}

func slipText(order *models.CustomerOrder, sale *models.SalesOrder) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", order.OrderNumber)
	fmt.Fprintf(&b, "Customer: %s\n", order.CustomerName)
	if order.DeliveryPhone != "" {
		fmt.Fprintf(&b, "Phone: %s\n", order.DeliveryPhone)
	}
	if order.DeliveryAddress != "" {
		fmt.Fprintf(&b, "Address: %s\n", order.DeliveryAddress)
	}
	for _, line := range sale.Items {
		fmt.Fprintf(&b, "%d x %s  %s\n", line.Quantity, line.Name, line.Subtotal().StringFixed(2))
	}
	fmt.Fprintf(&b, "Total: %s (%s)", sale.Total.StringFixed(2), sale.PaymentStatus)
	return b.String()
}
