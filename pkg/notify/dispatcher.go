package notify

import (
	"context"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/example/cartshop/pkg/models"
	"github.com/example/cartshop/pkg/shop"
	"go.uber.org/zap"
)

const deliveryTimeout = 10 * time.Second

type orderPlaced struct {
	order *models.Order
}

// notificationActor delivers each order to every notifier in turn. One actor
// means deliveries for different orders never interleave.
type notificationActor struct {
	notifiers []shop.Notifier
	logger    *zap.Logger
}

func (a *notificationActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *orderPlaced:
		for _, n := range a.notifiers {
			dctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
			if err := n.Notify(dctx, msg.order); err != nil {
				a.logger.Warn("Order notification failed",
					zap.Uint("order_id", msg.order.ID),
					zap.Error(err))
			}
			cancel()
		}

	case *actor.Started:
		a.logger.Info("Notification actor started", zap.Int("notifiers", len(a.notifiers)))

	case *actor.Stopping:
		a.logger.Info("Notification actor stopping")
	}
}

// Dispatcher implements shop.Notifier by handing orders to an actor. Notify
// returns as soon as the message is queued.
type Dispatcher struct {
	system *actor.ActorSystem
	pid    *actor.PID
	logger *zap.Logger
}

func NewDispatcher(logger *zap.Logger, notifiers ...shop.Notifier) (*Dispatcher, error) {
	system := actor.NewActorSystem()
	props := actor.PropsFromProducer(func() actor.Actor {
		return &notificationActor{notifiers: notifiers, logger: logger}
	})
	pid, err := system.Root.SpawnNamed(props, "order-notifier")
	if err != nil {
		return nil, err
	}
	return &Dispatcher{system: system, pid: pid, logger: logger}, nil
}

func (d *Dispatcher) Notify(_ context.Context, order *models.Order) error {
	snapshot := *order
	snapshot.Items = append([]models.OrderItem(nil), order.Items...)
	d.system.Root.Send(d.pid, &orderPlaced{order: &snapshot})
	return nil
}

// Stop waits for queued notifications to finish, then stops the actor.
func (d *Dispatcher) Stop() error {
	return d.system.Root.PoisonFuture(d.pid).Wait()
}
