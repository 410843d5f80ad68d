// Package scatter provides a Go client for building Scatter chat bots.
//
// The client maintains a persistent gateway connection for real-time
// events and wraps the REST API for one-shot actions. Connection drops
// are handled internally: the session reconnects with bounded backoff and
// replays channel and space subscriptions, so handlers never observe the
// seam.
//
// # Thread Safety
//
// [Client] is safe for concurrent use by multiple goroutines. Event
// handlers run one at a time, in arrival order, on the session's dispatch
// goroutine.
//
// # Basic Usage
//
//	client := scatter.New(os.Getenv("SCATTER_TOKEN"))
//
//	client.On(scatter.EventReady, func(evt scatter.Event) {
//	    log.Println("connected as", client.UserID())
//	})
//
//	client.On(scatter.EventMessage, func(evt scatter.Event) {
//	    msg := evt.(*scatter.MessageEvent).Message
//	    if msg.Content == "!ping" {
//	        client.SendMessage(context.Background(),
//	            msg.SpaceID, msg.ChannelID, "Pong!", nil)
//	    }
//	})
//
//	if err := client.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Typing Indicators
//
// While composing a slow reply, keep a typing indicator alive for the
// channel:
//
//	client.WithTyping(ctx, msg.ChannelID, func(ctx context.Context) error {
//	    reply, err := slowWork(ctx)
//	    if err != nil {
//	        return err
//	    }
//	    _, err = client.SendMessage(ctx, msg.SpaceID, msg.ChannelID, reply, nil)
//	    return err
//	})
//
// # Observability
//
// Use [WithLogger], [WithOnSend], and [WithOnReceive] to add logging and
// monitoring:
//
//	client := scatter.New(token,
//	    scatter.WithLogger(slog.Default()),
//	    scatter.WithOnReceive(func(env *scatter.Envelope) {
//	        metrics.FramesReceived.Inc()
//	    }),
//	)
package scatter
