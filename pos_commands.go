package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"YellowbellPOS/app/models"
	"YellowbellPOS/app/services"

	"github.com/spf13/cobra"
)

func newStockCommand(ctx *commandContext) *cobra.Command {
	stockCmd := &cobra.Command{
		Use:   "stock",
		Short: "Show inventory levels",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withBackend(func(b *services.Backend) error {
				items, err := b.Inventory.GetItems()
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(cmd.OutOrStdout(),
					[]string{"ID", "Name", "Category", "Stock", "Status", "Price"},
					buildStockRows(items),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignRight},
				))
				return nil
			})
		},
	}

	var reason string
	adjustCmd := &cobra.Command{
		Use:   "adjust <item-id> <delta>",
		Short: "Add or remove stock by hand",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			delta, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid delta %q: %w", args[1], err)
			}
			return ctx.withBackend(func(b *services.Backend) error {
				if err := b.Inventory.AdjustStock(args[0], delta, reason); err != nil {
					return err
				}
				item, err := b.Inventory.GetItem(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d (%s)\n", item.Name, item.Stock, item.Status)
				return nil
			})
		},
	}
	adjustCmd.Flags().StringVar(&reason, "reason", "manual adjustment", "Reason recorded on the stock movement")
	stockCmd.AddCommand(adjustCmd)

	return stockCmd
}

func buildStockRows(items []models.InventoryItem) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			item.ID,
			item.Name,
			string(item.Category),
			strconv.Itoa(item.Stock),
			string(item.Status),
			item.Price.StringFixed(2),
		})
	}
	return rows
}

func newKitchenCommand(ctx *commandContext) *cobra.Command {
	kitchenCmd := &cobra.Command{
		Use:   "kitchen",
		Short: "Show the kitchen board",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withBackend(func(b *services.Backend) error {
				groups, err := b.Kitchen.GetBoard()
				if err != nil {
					return err
				}
				if len(groups) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing on the board")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(cmd.OutOrStdout(),
					[]string{"Item", "Customer", "Order", "Ordered", "Cooked", "Pending", "Status"},
					buildBoardRows(groups),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	kitchenCmd.AddCommand(&cobra.Command{
		Use:   "cook <item-name> <quantity>",
		Short: "Mark units of an item cooked, filling orders in board order",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid quantity %q: %w", args[1], err)
			}
			return ctx.withBackend(func(b *services.Backend) error {
				return b.Kitchen.MarkGroupCooked(args[0], qty)
			})
		},
	})

	kitchenCmd.AddCommand(&cobra.Command{
		Use:   "undo <item-name> <quantity>",
		Short: "Take back the most recently cooked units of an item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid quantity %q: %w", args[1], err)
			}
			return ctx.withBackend(func(b *services.Backend) error {
				return b.Orders.UndoCooked(args[0], qty)
			})
		},
	})

	return kitchenCmd
}

func buildBoardRows(groups []services.KitchenGroup) [][]string {
	var rows [][]string
	for _, group := range groups {
		for i, row := range group.Rows {
			name, status := "", ""
			if i == 0 {
				name = fmt.Sprintf("%s (%d/%d)", group.Name, group.TotalCooked, group.TotalOrdered)
				status = string(group.Status)
			}
			rows = append(rows, []string{
				name,
				row.CustomerName,
				row.OrderNumber,
				strconv.Itoa(row.Ordered),
				strconv.Itoa(row.Cooked),
				strconv.Itoa(row.Pending),
				status,
			})
		}
	}
	return rows
}

func newOrdersCommand(ctx *commandContext) *cobra.Command {
	var all bool
	ordersCmd := &cobra.Command{
		Use:   "orders",
		Short: "List today's orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withBackend(func(b *services.Backend) error {
				var orders []models.CustomerOrder
				var err error
				if all {
					orders, err = b.Orders.GetCustomerOrders()
				} else {
					orders, err = b.Orders.GetTodayOrders()
				}
				if err != nil {
					return err
				}
				if len(orders) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No orders")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(cmd.OutOrStdout(),
					[]string{"ID", "Order", "Customer", "Items", "Status", "Placed"},
					buildOrderRows(orders),
					nil,
				))
				return nil
			})
		},
	}
	ordersCmd.Flags().BoolVar(&all, "all", false, "Include orders from earlier days")

	var req services.PlaceOrderRequest
	var itemFlags []string
	var paymentStatus string
	placeCmd := &cobra.Command{
		Use:   "place",
		Short: "Place an order",
		RunE: func(cmd *cobra.Command, args []string) error {
			lines, err := parseCartLines(itemFlags)
			if err != nil {
				return err
			}
			req.Items = lines
			req.PaymentStatus = models.PaymentStatus(paymentStatus)
			return ctx.withBackend(func(b *services.Backend) error {
				order, err := b.Orders.PlaceOrder(req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s placed for %s (id %s)\n", order.OrderNumber, order.CustomerName, order.ID)
				return nil
			})
		},
	}
	placeCmd.Flags().StringVar(&req.CustomerName, "customer", "", "Customer name")
	placeCmd.Flags().StringArrayVar(&itemFlags, "item", nil, "Item as <id>=<quantity>, repeatable")
	placeCmd.Flags().StringVar(&req.DeliveryPhone, "phone", "", "Delivery phone")
	placeCmd.Flags().StringVar(&req.DeliveryAddress, "address", "", "Delivery address")
	placeCmd.Flags().StringVar(&req.MealType, "meal-type", "", "Meal type")
	placeCmd.Flags().StringVar(&paymentStatus, "payment", string(models.PaymentStatusPaid), "Payment status (paid or unpaid)")
	placeCmd.Flags().StringVar(&req.PaymentMethod, "method", "", "Payment method")
	_ = placeCmd.MarkFlagRequired("customer")
	_ = placeCmd.MarkFlagRequired("item")
	ordersCmd.AddCommand(placeCmd)

	ordersCmd.AddCommand(orderActionCommand(ctx, "delete", "Delete an order and restore its stock",
		func(b *services.Backend, id string) error { return b.Orders.DeleteOrder(id) }))
	ordersCmd.AddCommand(orderActionCommand(ctx, "deliver", "Mark a complete order delivered",
		func(b *services.Backend, id string) error { return b.Orders.MarkOrderAsDelivered(id) }))
	ordersCmd.AddCommand(orderActionCommand(ctx, "undeliver", "Revert a delivery confirmation",
		func(b *services.Backend, id string) error { return b.Orders.MarkOrderAsUndelivered(id) }))

	return ordersCmd
}

func orderActionCommand(ctx *commandContext, use, short string, fn func(*services.Backend, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <order-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withBackend(func(b *services.Backend) error {
				if err := fn(b, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: done\n", use)
				return nil
			})
		},
	}
}

func buildOrderRows(orders []models.CustomerOrder) [][]string {
	rows := make([][]string, 0, len(orders))
	for _, order := range orders {
		items := make([]string, 0, len(order.OrderedItems))
		for _, line := range order.OrderedItems {
			items = append(items, fmt.Sprintf("%dx %s (%d cooked)", line.Quantity, line.Name, order.CookedQuantity(line.Name)))
		}
		rows = append(rows, []string{
			order.ID,
			order.OrderNumber,
			order.CustomerName,
			strings.Join(items, ", "),
			string(order.Status),
			order.CreatedAt.Local().Format("15:04"),
		})
	}
	return rows
}

// parseCartLines reads <id>=<quantity> pairs
func parseCartLines(values []string) ([]services.CartLine, error) {
	lines := make([]services.CartLine, 0, len(values))
	for _, value := range values {
		id, qtyStr, ok := strings.Cut(value, "=")
		if !ok || strings.TrimSpace(id) == "" {
			return nil, fmt.Errorf("item %q must look like <id>=<quantity>", value)
		}
		qty, err := strconv.Atoi(strings.TrimSpace(qtyStr))
		if err != nil {
			return nil, fmt.Errorf("item %q: invalid quantity: %w", value, err)
		}
		lines = append(lines, services.CartLine{ItemID: strings.TrimSpace(id), Quantity: qty})
	}
	return lines, nil
}

// parseQuantities reads a comma separated list such as "2,0,1"
func parseQuantities(value string) ([]int, error) {
	parts := strings.Split(value, ",")
	out := make([]int, 0, len(parts))
	for _, part := range parts {
		qty, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid quantity %q: %w", part, err)
		}
		out = append(out, qty)
	}
	return out, nil
}

func newPreparedCommand(ctx *commandContext) *cobra.Command {
	preparedCmd := &cobra.Command{
		Use:   "prepared",
		Short: "List prepared batches",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withBackend(func(b *services.Backend) error {
				batches, err := b.Prepared.GetPreparedOrders()
				if err != nil {
					return err
				}
				if len(batches) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No prepared batches")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(cmd.OutOrStdout(),
					[]string{"ID", "Batch", "Meal type", "Items (remaining/prepared)", "Status"},
					buildPreparedRows(batches),
					nil,
				))
				return nil
			})
		},
	}

	var itemFlags []string
	var mealType string
	confirmCmd := &cobra.Command{
		Use:   "confirm",
		Short: "Take a pre-cooked batch out of stock",
		RunE: func(cmd *cobra.Command, args []string) error {
			lines, err := parseCartLines(itemFlags)
			if err != nil {
				return err
			}
			return ctx.withBackend(func(b *services.Backend) error {
				batch, err := b.Prepared.ConfirmPrepared(lines, mealType)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s holds %d units (id %s)\n", batch.OrderNumber, batch.RemainingUnits(), batch.ID)
				return nil
			})
		},
	}
	confirmCmd.Flags().StringArrayVar(&itemFlags, "item", nil, "Item as <id>=<quantity>, repeatable")
	confirmCmd.Flags().StringVar(&mealType, "meal-type", "", "Meal type; an open batch of the same type absorbs the items")
	_ = confirmCmd.MarkFlagRequired("item")
	preparedCmd.AddCommand(confirmCmd)

	var customer string
	convertCmd := &cobra.Command{
		Use:   "convert <batch-id> <quantities>",
		Short: "Sell from a batch, one quantity per batch line (e.g. 2,0,1)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			quantities, err := parseQuantities(args[1])
			if err != nil {
				return err
			}
			return ctx.withBackend(func(b *services.Backend) error {
				sale, err := b.Prepared.ConvertToOrder(args[0], quantities, customer)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s sold to %s for %s\n", sale.OrderNumber, sale.CustomerName, sale.Total.StringFixed(2))
				return nil
			})
		},
	}
	convertCmd.Flags().StringVar(&customer, "customer", "", "Customer name")
	preparedCmd.AddCommand(convertCmd)

	preparedCmd.AddCommand(&cobra.Command{
		Use:   "delete <batch-id>",
		Short: "Delete a batch and return its unsold units to stock",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withBackend(func(b *services.Backend) error {
				return b.Prepared.DeletePrepared(args[0])
			})
		},
	})

	return preparedCmd
}

func buildPreparedRows(batches []models.PreparedOrder) [][]string {
	rows := make([][]string, 0, len(batches))
	for _, batch := range batches {
		items := make([]string, 0, len(batch.Items))
		for _, line := range batch.Items {
			items = append(items, fmt.Sprintf("%s %d/%d", line.Name, line.RemainingQuantity, line.Quantity))
		}
		rows = append(rows, []string{batch.ID, batch.OrderNumber, batch.MealType, strings.Join(items, ", "), string(batch.Status)})
	}
	return rows
}

func newSlipCommand(ctx *commandContext) *cobra.Command {
	var out string
	var size int
	cmd := &cobra.Command{
		Use:   "slip <order-id>",
		Short: "Print a delivery slip and write its QR code as PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withBackend(func(b *services.Backend) error {
				slip, err := b.Orders.DeliverySlip(args[0], size)
				if err != nil {
					return err
				}
				if out == "" {
					out = fmt.Sprintf("%s-%s.png", slip.OrderNumber, time.Now().Format("150405"))
				}
				if err := os.WriteFile(out, slip.QRCode, 0644); err != nil {
					return fmt.Errorf("could not write %s: %w", out, err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), slip.Text)
				fmt.Fprintf(cmd.OutOrStdout(), "QR written to %s\n", out)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "PNG output path")
	cmd.Flags().IntVar(&size, "size", 256, "QR size in pixels")
	return cmd
}
