// Command gbcr talks to a Game Boy cartridge reader over a serial
// port: identifying the board, decoding a cartridge's header, dumping
// its ROM, backing up or restoring its save RAM, and reflashing an
// SST39SF0x0 flash cartridge.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gbcart/reader/internal/cartridge"
	"github.com/gbcart/reader/internal/dump"
	"github.com/gbcart/reader/internal/flash"
	"github.com/gbcart/reader/internal/mbc"
	"github.com/gbcart/reader/internal/ramio"
	"github.com/gbcart/reader/internal/session"
	"github.com/gbcart/reader/internal/transport"
	"github.com/gbcart/reader/pkg/log"
	"github.com/gbcart/reader/pkg/progress"
	"github.com/gbcart/reader/pkg/store"
	"github.com/gbcart/reader/pkg/stream"
	"github.com/gbcart/reader/pkg/utils"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd, args := os.Args[1], os.Args[2:]
	var err error
	switch cmd {
	case "info":
		err = runInfo(args)
	case "header":
		err = runHeader(args)
	case "dump":
		err = runDump(args)
	case "backup":
		err = runBackup(args)
	case "restore":
		err = runRestore(args)
	case "flash":
		err = runFlash(args)
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "gbcr:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: gbcr <info|header|dump|backup|restore|flash> [flags]")
}

// deviceFlags are shared by every subcommand that talks to a reader.
type deviceFlags struct {
	port    *string
	chipset *string
	serve   *bool
}

func addDeviceFlags(fs *flag.FlagSet) *deviceFlags {
	return &deviceFlags{
		port:    fs.String("port", "", "serial device path"),
		chipset: fs.String("chipset", session.ChipsetAVR, "reader chipset: AVR or 8515"),
		serve:   fs.Bool("serve", false, "serve progress to a GUI over ws://:8090"),
	}
}

func (d *deviceFlags) open(logger log.Logger) (*session.Session, error) {
	baud, err := session.BaudRate(*d.chipset)
	if err != nil {
		return nil, err
	}
	t, err := transport.OpenSerial(*d.port, baud)
	if err != nil {
		return nil, err
	}
	s, err := session.Open(t, logger)
	if err != nil {
		_ = t.Close()
		return nil, err
	}
	return s, nil
}

// logSink reports progress through the same logger as everything else,
// at debug level. The logger from log.New prints every level, so each
// unit's start and done lines appear on stderr.
type logSink struct{ log log.Logger }

func (s logSink) Start(index int) { s.log.Debugf("unit %d: start", index) }
func (s logSink) Done(index int)  { s.log.Debugf("unit %d: done", index) }

// sinkFor builds a progress sink for the job. Plain runs just log;
// --serve additionally fans events out to a websocket hub
// so a GUI collaborator sees them live alongside the logs. It returns a
// stop func to call once the job finishes.
func sinkFor(d *deviceFlags, logger log.Logger) (progress.Sink, func()) {
	if !*d.serve {
		return logSink{log: logger}, func() {}
	}

	hub := stream.NewHub(logger)
	go hub.Run()

	mux := http.NewServeMux()
	mux.HandleFunc("/", hub.Handler())
	srv := &http.Server{Addr: ":8090", Handler: mux}
	go func() {
		logger.Infof("serving progress on ws://localhost:8090")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("progress server: %v", err)
		}
	}()

	return progress.Multi{logSink{log: logger}, hub}, func() { _ = srv.Close() }
}

func readHeader(s *session.Session) (*cartridge.Header, error) {
	raw, err := s.Codec.ReadHeader()
	if err != nil {
		return nil, err
	}
	return cartridge.Parse(raw)
}

func printHeader(h *cartridge.Header) {
	fmt.Printf("title:        %s\n", h.Title)
	fmt.Printf("mapper:       %s\n", h.Mapper)
	fmt.Printf("rom:          %d bytes (%d banks)\n", h.ROMBytes, h.ROMBanks)
	fmt.Printf("ram:          %d bytes (%d banks)\n", h.RAMBytes, h.RAMBanks)
	fmt.Printf("gbc capable:  %v\n", h.GBCCapable)
	fmt.Printf("sgb capable:  %v\n", h.SGBCapable)
	fmt.Printf("header cksum: 0x%02X (valid: %v)\n", h.HeaderChecksum, h.HeaderChecksumValid)
	fmt.Printf("logo valid:   %v\n", h.LogoValid)
}

func runInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	df := addDeviceFlags(fs)
	fs.Parse(args)

	logger := log.New()
	s, err := df.open(logger)
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Printf("chipset:      %s\n", s.Chipset)
	fmt.Printf("firmware:     %d.%d.%d\n", s.Major, s.Minor, s.Patch)
	fmt.Printf("compile time: %s\n", s.CompileTime())
	return nil
}

func runHeader(args []string) error {
	fs := flag.NewFlagSet("header", flag.ExitOnError)
	df := addDeviceFlags(fs)
	fs.Parse(args)

	logger := log.New()
	s, err := df.open(logger)
	if err != nil {
		return err
	}
	defer s.Close()

	h, err := readHeader(s)
	if err != nil {
		return err
	}
	printHeader(h)
	return nil
}

func runDump(args []string) error {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	df := addDeviceFlags(fs)
	out := fs.String("out", "rom.gb", "output ROM image path")
	fs.Parse(args)

	logger := log.New()
	s, err := df.open(logger)
	if err != nil {
		return err
	}

	sink, stop := sinkFor(df, logger)
	defer stop()

	var result *dump.Result
	err = s.RunExclusive(func(s *session.Session) error {
		h, err := readHeader(s)
		if err != nil {
			return err
		}
		driver, err := mbc.New(h.Mapper, s.Codec)
		if err != nil {
			return err
		}
		result, err = dump.ROM(context.Background(), s.Codec, driver, h, sink)
		return err
	})
	if err != nil {
		return err
	}

	if !result.ChecksumValid {
		logger.Warnf("global checksum mismatch on dumped image")
	}
	return os.WriteFile(*out, result.Image, 0o644)
}

func runBackup(args []string) error {
	fs := flag.NewFlagSet("backup", flag.ExitOnError)
	df := addDeviceFlags(fs)
	fs.Parse(args)

	logger := log.New()
	s, err := df.open(logger)
	if err != nil {
		return err
	}

	var path string
	err = s.RunExclusive(func(s *session.Session) error {
		h, err := readHeader(s)
		if err != nil {
			return err
		}
		driver, err := mbc.New(h.Mapper, s.Codec)
		if err != nil {
			return err
		}
		data, err := ramio.Backup(s.Codec, driver, h)
		if err != nil {
			return err
		}
		path, err = store.New(store.CartridgeID(h.Raw[:]), data)
		return err
	})
	if err != nil {
		return err
	}
	fmt.Println("saved:", path)
	return nil
}

func runRestore(args []string) error {
	fs := flag.NewFlagSet("restore", flag.ExitOnError)
	df := addDeviceFlags(fs)
	in := fs.String("in", "", "save file to restore (defaults to the newest backup for this cartridge)")
	fs.Parse(args)

	logger := log.New()
	s, err := df.open(logger)
	if err != nil {
		return err
	}

	return s.RunExclusive(func(s *session.Session) error {
		h, err := readHeader(s)
		if err != nil {
			return err
		}

		path := *in
		if path == "" {
			path, err = store.Latest(store.CartridgeID(h.Raw[:]))
			if err != nil {
				return err
			}
			if path == "" {
				return fmt.Errorf("gbcr: no backup found for this cartridge, pass -in")
			}
		}

		data, err := utils.LoadImage(path)
		if err != nil {
			return err
		}

		driver, err := mbc.New(h.Mapper, s.Codec)
		if err != nil {
			return err
		}
		return ramio.Restore(s.Codec, driver, h, data)
	})
}

func runFlash(args []string) error {
	fs := flag.NewFlagSet("flash", flag.ExitOnError)
	df := addDeviceFlags(fs)
	in := fs.String("in", "", "ROM image to flash (32 KiB)")
	fs.Parse(args)

	if *in == "" {
		return fmt.Errorf("gbcr: -in is required")
	}
	switch filepath.Ext(*in) {
	case ".gz", ".xz", ".zip", ".7z":
		// compressed size won't match the decompressed image; flash.ROM
		// catches a bad size after decompression instead.
	default:
		if !utils.IsSize(*in, 32*1024) {
			return fmt.Errorf("gbcr: %s is not a 32 KiB ROM image", *in)
		}
	}
	image, err := utils.LoadImage(*in)
	if err != nil {
		return err
	}

	logger := log.New()
	s, err := df.open(logger)
	if err != nil {
		return err
	}

	sink, stop := sinkFor(df, logger)
	defer stop()

	return s.RunExclusive(func(s *session.Session) error {
		return flash.ROM(context.Background(), s.Codec, image, sink)
	})
}
