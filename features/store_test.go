package features

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/cucumber/godog"
	"google.golang.org/protobuf/types/known/structpb"

	"storefront/logic"
	"storefront/store"
)

type storeTestContext struct {
	store       *store.Store
	notified    []logic.State
	unsubscribe func()
	err         error
}

func (c *storeTestContext) reset() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
	c.store = store.New()
	c.notified = nil
	c.unsubscribe = nil
	c.err = nil
}

func sampleCatalog() []interface{} {
	return []interface{}{
		map[string]interface{}{"id": "1", "item_name": "Shirt", "company": "Carlton London", "current_price": 800, "original_price": 1000},
		map[string]interface{}{"id": "2", "item_name": "Pants", "company": "Roadster", "current_price": 1200, "original_price": 1500},
	}
}

// dispatch sends the action through the wire decoder, the same path a gRPC
// client takes.
func (c *storeTestContext) dispatch(actionType string, payload interface{}) error {
	msg, err := structpb.NewStruct(map[string]interface{}{
		logic.FieldType:    actionType,
		logic.FieldPayload: payload,
	})
	if err != nil {
		return err
	}
	action, err := logic.DecodeAction(msg)
	if err != nil {
		return err
	}
	c.store.Dispatch(action)
	return nil
}

func (c *storeTestContext) aNewStorefrontStore() error {
	c.reset()
	return nil
}

func (c *storeTestContext) theCatalogHasBeenLoadedWithItems(count int) error {
	catalog := sampleCatalog()
	if count > len(catalog) {
		return fmt.Errorf("only %d sample items available", len(catalog))
	}
	if err := c.dispatch(logic.TypeAddInitialItems, catalog[:count]); err != nil {
		return err
	}
	return c.dispatch(logic.TypeToggleLoading, false)
}

func (c *storeTestContext) aSubscriberIsRegistered() error {
	c.unsubscribe = c.store.Subscribe(func(state logic.State) {
		c.notified = append(c.notified, state)
	})
	return nil
}

func (c *storeTestContext) iDispatchWithString(actionType, payload string) error {
	return c.dispatch(actionType, payload)
}

func (c *storeTestContext) iDispatchWithBool(actionType, payload string) error {
	value, err := strconv.ParseBool(payload)
	if err != nil {
		return err
	}
	return c.dispatch(actionType, value)
}

func (c *storeTestContext) iDispatchWithTheCatalog(actionType string, table *godog.Table) error {
	if len(table.Rows) == 0 {
		return fmt.Errorf("catalog table has no header")
	}
	header := table.Rows[0].Cells
	items := make([]interface{}, 0, len(table.Rows)-1)
	for _, row := range table.Rows[1:] {
		item := make(map[string]interface{}, len(header))
		for i, cell := range row.Cells {
			name := header[i].Value
			switch name {
			case "current_price", "original_price":
				n, err := strconv.Atoi(cell.Value)
				if err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
				item[name] = n
			default:
				item[name] = cell.Value
			}
		}
		items = append(items, item)
	}
	return c.dispatch(actionType, items)
}

func (c *storeTestContext) theStoreIsLoading() error {
	if !c.store.State().Loading {
		return fmt.Errorf("expected loading to be true")
	}
	return nil
}

func (c *storeTestContext) theStoreIsNotLoading() error {
	if c.store.State().Loading {
		return fmt.Errorf("expected loading to be false")
	}
	return nil
}

func (c *storeTestContext) theCatalogHasItems(count int) error {
	if got := len(c.store.State().Catalog); got != count {
		return fmt.Errorf("expected %d catalog items, got %d", count, got)
	}
	return nil
}

func (c *storeTestContext) theBagIsEmpty() error {
	bag := c.store.State().Bag
	if bag == nil {
		return fmt.Errorf("expected an empty bag, got nil")
	}
	if len(bag) != 0 {
		return fmt.Errorf("expected an empty bag, got %v", bag)
	}
	return nil
}

func (c *storeTestContext) theBagContains(ids string) error {
	if got := strings.Join(c.store.State().Bag, ","); got != ids {
		return fmt.Errorf("expected bag %q, got %q", ids, got)
	}
	return nil
}

func (c *storeTestContext) theBagCountIs(count int) error {
	if got := logic.BagCount(c.store.State()); got != count {
		return fmt.Errorf("expected bag count %d, got %d", count, got)
	}
	return nil
}

func (c *storeTestContext) theSubscriberWasNotifiedTimes(count int) error {
	if len(c.notified) != count {
		return fmt.Errorf("expected %d notifications, got %d", count, len(c.notified))
	}
	return nil
}

func (c *storeTestContext) theLastNotifiedBagContains(ids string) error {
	if len(c.notified) == 0 {
		return fmt.Errorf("subscriber was never notified")
	}
	last := c.notified[len(c.notified)-1]
	if got := strings.Join(last.Bag, ","); got != ids {
		return fmt.Errorf("expected notified bag %q, got %q", ids, got)
	}
	return nil
}

func (c *storeTestContext) theBagSummaryWithFeeHas(fee, mrp, discount, final int) error {
	summary := logic.Summarize(c.store.State(), fee)
	if summary.TotalMRP != mrp {
		return fmt.Errorf("expected total MRP %d, got %d", mrp, summary.TotalMRP)
	}
	if summary.TotalDiscount != discount {
		return fmt.Errorf("expected discount %d, got %d", discount, summary.TotalDiscount)
	}
	if summary.FinalPayment != final {
		return fmt.Errorf("expected final payment %d, got %d", final, summary.FinalPayment)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &storeTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^a new storefront store$`, tc.aNewStorefrontStore)
	ctx.Step(`^the catalog has been loaded with (\d+) items$`, tc.theCatalogHasBeenLoadedWithItems)
	ctx.Step(`^a subscriber is registered$`, tc.aSubscriberIsRegistered)

	// When steps
	ctx.Step(`^I dispatch "([^"]*)" with "([^"]*)"$`, tc.iDispatchWithString)
	ctx.Step(`^I dispatch "([^"]*)" with (true|false)$`, tc.iDispatchWithBool)
	ctx.Step(`^I dispatch "([^"]*)" with the catalog:$`, tc.iDispatchWithTheCatalog)

	// Then steps
	ctx.Step(`^the store is loading$`, tc.theStoreIsLoading)
	ctx.Step(`^the store is not loading$`, tc.theStoreIsNotLoading)
	ctx.Step(`^the catalog has (\d+) items$`, tc.theCatalogHasItems)
	ctx.Step(`^the bag is empty$`, tc.theBagIsEmpty)
	ctx.Step(`^the bag contains "([^"]*)"$`, tc.theBagContains)
	ctx.Step(`^the bag count is (\d+)$`, tc.theBagCountIs)
	ctx.Step(`^the subscriber was notified (\d+) times$`, tc.theSubscriberWasNotifiedTimes)
	ctx.Step(`^the last notified bag contains "([^"]*)"$`, tc.theLastNotifiedBagContains)
	ctx.Step(`^the bag summary with fee (\d+) has total MRP (\d+), discount (\d+) and final payment (\d+)$`, tc.theBagSummaryWithFeeHas)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"store.feature"},
			TestingT: t,
			Strict:   true,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
