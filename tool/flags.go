package tool

import "flag"

// Config holds runtime overrides from CLI flags.
type Config struct {
	Log           string
	UseConfigPath string
	UsePort       int
	UseAssetRoot  string
	UseHttps      bool
	Headless      bool
	QROut         string
	Announce      string
	Payload       string
}

// SetFlags parses CLI flags and returns the override config.
func SetFlags() Config {
	var cfg Config
	flag.StringVar(&cfg.Log, "log", "", "log mode: dev|prod|none")
	flag.StringVar(&cfg.UseConfigPath, "useConfigPath", "", "override config file path")
	flag.IntVar(&cfg.UsePort, "usePort", 0, "override server port")
	flag.StringVar(&cfg.UseAssetRoot, "useAssetRoot", "", "override static asset directory")
	flag.BoolVar(&cfg.UseHttps, "useHttps", false, "serve over https with a self-signed certificate")
	flag.BoolVar(&cfg.Headless, "headless", false, "start the server immediately without the terminal shell")
	flag.StringVar(&cfg.QROut, "qrOut", "", "headless: write the pairing QR code to this PNG file")
	flag.StringVar(&cfg.Announce, "announce", "", "act as a companion device and announce to this server URL")
	flag.StringVar(&cfg.Payload, "payload", "", "handshake payload sent with -announce")
	flag.Parse()
	return cfg
}
