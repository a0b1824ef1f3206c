package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/moyoez/retadi-server/api"
	"github.com/moyoez/retadi-server/netaddr"
	"github.com/moyoez/retadi-server/notify"
	"github.com/moyoez/retadi-server/qr"
	"github.com/moyoez/retadi-server/session"
	"github.com/moyoez/retadi-server/tool"
	"github.com/moyoez/retadi-server/transfer"
	"github.com/moyoez/retadi-server/types"
	"github.com/moyoez/retadi-server/ui"
)

// mergeAppConfig applies CLI overrides to appCfg and re-validates it.
func mergeAppConfig(cfg tool.Config, appCfg *tool.AppConfig) error {
	if cfg.UsePort > 0 {
		if cfg.UsePort > 65535 {
			return fmt.Errorf("invalid -usePort %d", cfg.UsePort)
		}
		appCfg.Port = uint16(cfg.UsePort)
	}
	if cfg.UseAssetRoot != "" {
		appCfg.AssetRoot = cfg.UseAssetRoot
	}
	if cfg.UseHttps {
		appCfg.Protocol = "https"
	}
	appCfg.AssetRoot = tool.ResolveAssetRoot(appCfg.AssetRoot)
	return tool.ValidateConfig(*appCfg)
}

func buildServer(appCfg tool.AppConfig, state *session.State) (*api.Server, *netaddr.Resolver) {
	notifier, err := notify.New(appCfg.NotifyURL, nil)
	if err != nil {
		tool.DefaultLogger.Warnf("Notifications disabled: %v", err)
	}
	var prober *netaddr.Prober
	if appCfg.ProbeDevices {
		prober = netaddr.NewProber()
	}
	resolver := netaddr.NewResolver(appCfg.Protocol)
	server := api.NewServer(state, api.Options{
		Protocol:  appCfg.Protocol,
		Resolver:  resolver,
		DeviceTTL: appCfg.DeviceTTL,
		Notifier:  notifier,
		Prober:    prober,
	})
	return server, resolver
}

func runAnnounce(cfg tool.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), tool.DefaultTimeout)
	defer cancel()

	var (
		ack string
		err error
	)
	if cfg.Payload != "" {
		ack, err = transfer.Announce(ctx, cfg.Announce, tool.StringToBytes(cfg.Payload))
	} else {
		host, _ := os.Hostname()
		ack, err = transfer.AnnounceDevice(ctx, cfg.Announce, types.DeviceInfo{
			Alias:      host,
			DeviceType: "desktop",
		})
	}
	if err != nil {
		return err
	}
	fmt.Println(ack)
	return nil
}

// printPairing writes the URL and a terminal QR code; a QR failure still
// leaves the URL usable.
func printPairing(url string, size int, pngPath string) {
	fmt.Printf("ReTADI Server v%s running at %s\n", tool.Version, url)
	bitmap, err := qr.Encode(url, size, size)
	if err != nil {
		tool.DefaultLogger.Warnf("QR unavailable: %v", err)
		return
	}
	fmt.Println(ui.RenderQR(bitmap))
	if pngPath == "" {
		return
	}
	data, err := bitmap.PNG()
	if err == nil {
		err = os.WriteFile(pngPath, data, 0o644)
	}
	if err != nil {
		tool.DefaultLogger.Errorf("Failed to write QR code to %s: %v", pngPath, err)
		return
	}
	tool.DefaultLogger.Infof("QR code written to %s", pngPath)
}

func runHeadless(server *api.Server, state *session.State, appCfg tool.AppConfig, qrOut string) error {
	if err := server.Start(appCfg.Port, appCfg.AssetRoot); err != nil {
		return err
	}
	printPairing(state.Snapshot().URL, appCfg.QRSize, qrOut)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil && !errors.Is(err, api.ErrNotRunning) {
		return err
	}
	return nil
}

func main() {
	cfg := tool.SetFlags()
	appCfg, err := tool.LoadConfig(cfg.UseConfigPath)
	if err != nil {
		tool.DefaultLogger.Fatalf("%v", err)
	}
	if err := mergeAppConfig(cfg, &appCfg); err != nil {
		tool.DefaultLogger.Fatalf("%v", err)
	}

	headless := cfg.Headless || !isatty.IsTerminal(os.Stdout.Fd())
	// the shell owns the terminal, so only headless modes log to stdout
	tool.InitLogger(headless || cfg.Announce != "")
	tool.SetLogMode(cfg.Log)

	if cfg.Announce != "" {
		if err := runAnnounce(cfg); err != nil {
			tool.DefaultLogger.Fatalf("Announce failed: %v", err)
		}
		return
	}

	state := session.New()
	server, resolver := buildServer(appCfg, state)

	if headless {
		if err := runHeadless(server, state, appCfg, cfg.QROut); err != nil {
			tool.DefaultLogger.Fatalf("Server failed: %v", err)
		}
		return
	}

	err = ui.Run(server, state, ui.Options{
		Port:       appCfg.Port,
		AssetRoot:  appCfg.AssetRoot,
		Protocol:   appCfg.Protocol,
		QRSize:     appCfg.QRSize,
		AutoStart:  appCfg.AutoStart,
		Interfaces: resolver.NetworkInfos,
	})
	if err != nil {
		tool.DefaultLogger.Fatalf("Shell exited: %v", err)
	}
}
