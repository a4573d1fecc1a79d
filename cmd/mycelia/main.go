// Command mycelia is a thin demonstration program: load config, boot a
// kernel, register two example subsystems, send a few messages including
// one with responseRequired, and print the resulting statistics. It is
// scaffolding for humans running the repo locally, not a generator — it
// imports only the public kernel API (SPEC_FULL.md §4.14).
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/mycelia/kernel/internal/config"
	"github.com/mycelia/kernel/internal/kernel"
	"github.com/mycelia/kernel/internal/storage"
)

func main() {
	rootPath := flag.String("root", ".", "root path searched for kernel.toml")
	slugHome := flag.String("home", "", "secondary search path for kernel.toml")
	flag.Parse()

	tree := config.Load(*rootPath, *slugHome, "demo", flag.Args())

	k, err := kernel.NewKernel()
	if err != nil {
		slog.Error("failed to boot kernel", slog.Any("error", err))
		os.Exit(1)
	}
	defer k.Dispose()

	echo, echoIdentity := buildExampleSubsystem(k, "echo", tree)
	echoRouter := routerOf(echo)
	echoRouter.RegisterRoute("ping", func(msg *kernel.Message, opts kernel.SendOptions) (any, error) {
		return "pong", nil
	}, nil)

	greeter, greeterIdentity := buildExampleSubsystem(k, "greeter", tree, kernel.HookStorage())
	greeterRouter := routerOf(greeter)
	greeterRouter.RegisterRoute("hello/{name}", func(msg *kernel.Message, opts kernel.SendOptions) (any, error) {
		store, _ := greeter.Facets().Get(kernel.ContractStorage)
		backend := store.Value.(storage.Backend)
		greeting := fmt.Sprintf("hello, %s", opts.Params["name"])
		_ = backend.Put(context.Background(), "last-greeting", []byte(greeting))
		return greeting, nil
	}, nil)

	pingMsg := kernel.NewMessage("echo://ping", nil, nil)
	pingResult := k.Send(&pingMsg, kernel.SendOptions{ProcessImmediately: true})
	fmt.Printf("echo://ping -> %+v\n", pingResult)

	// echo and greeter are unrelated top-level subsystems, so reaching
	// greeter requires an explicit friend grant before the send is
	// attempted — the kernel's security gate (spec.md §2's
	// identity.sendProtected) rather than the unauthenticated Kernel.Send
	// used above for the un-addressed ping.
	k.Access.Grant(echoIdentity.PKR, greeterIdentity.PKR, kernel.RightSend)

	helloMsg := kernel.NewMessage("greeter://hello/world", nil, nil)
	helloResult, err := echoIdentity.SendProtected("greeter", &helloMsg, kernel.SendOptions{
		ProcessImmediately: true,
		ResponseRequired:   &kernel.ResponseRequirement{ReplyTo: "echo://ping", TimeoutMs: 5000},
	})
	if err != nil {
		slog.Error("protected send failed", slog.Any("error", err))
	}
	fmt.Printf("greeter://hello/world -> %+v\n", helloResult)

	stats := k.Stats()
	fmt.Printf("messageSystem stats: routed=%d errors=%d unknown=%d\n",
		stats.MessagesRouted, stats.RoutingErrors, stats.UnknownRoutes)
}

// buildExampleSubsystem wires up the default-hooks bundle, an overwrite
// router hook whose scope check admits every message (it rejects
// nothing), and any extraHooks the caller needs present before the one and
// only Build call, then registers it with the kernel and returns the
// Identity the caller needs to reach it through SendProtected.
func buildExampleSubsystem(k *kernel.Kernel, name string, config map[string]any, extraHooks ...kernel.Hook) (*kernel.Subsystem, kernel.Identity) {
	sub := kernel.NewSubsystem(name, config)
	for _, h := range kernel.DefaultHooks(256, 32, kernel.Reject, k.Errors.RecordError) {
		sub.Use(h)
	}
	sub.Use(kernel.HookRouterWithScopes(func(msg *kernel.Message, opts kernel.SendOptions) error {
		return nil
	}))
	for _, h := range extraHooks {
		sub.Use(h)
	}

	if err := k.Builder.Build(sub); err != nil {
		slog.Error("failed to build subsystem", slog.String("name", name), slog.Any("error", err))
		os.Exit(1)
	}
	identity, err := k.RegisterSubsystem(sub, kernel.EntityTopLevel)
	if err != nil {
		slog.Error("failed to register subsystem", slog.String("name", name), slog.Any("error", err))
		os.Exit(1)
	}
	return sub, identity
}

// routeRegistrar is the narrow surface main needs from a subsystem's
// router facet, satisfied by both *kernel.Router and the scoped decorator
// HookRouterWithScopes installs.
type routeRegistrar interface {
	RegisterRoute(pattern string, handler kernel.RouteHandler, meta map[string]any) *kernel.RouteEntry
}

func routerOf(sub *kernel.Subsystem) routeRegistrar {
	facet, _ := sub.Facets().Get(kernel.ContractRouter)
	r, ok := facet.Value.(routeRegistrar)
	if !ok {
		slog.Error("subsystem router facet has unexpected type")
		os.Exit(1)
	}
	return r
}
