package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/sarpt/goutils/pkg/listflag"

	"github.com/avkit/player-bridge/internal/library"
	"github.com/avkit/player-bridge/internal/mpvengine"
	"github.com/avkit/player-bridge/internal/rest"
	"github.com/avkit/player-bridge/internal/sse"
	"github.com/avkit/player-bridge/pkg/bridge"
	"github.com/avkit/player-bridge/pkg/presentation"
)

const (
	defaultAddress   = "localhost:3001"
	defaultSocketDir = "/tmp"

	dirFlag       = "dir"
	allowCorsFlag = "allow-cors"
	addrFlag      = "addr"
	socketDirFlag = "socket-dir"
)

var (
	dir       *listflag.StringList
	allowCORS *bool
	address   *string
	socketDir *string
)

func init() {
	dir = listflag.NewStringList([]string{})

	flag.Var(dir, dirFlag, "directory containing media files resolvable by bare references. when left empty, current working directory will be used")
	allowCORS = flag.Bool(allowCorsFlag, false, "when not provided, Cross Origin Site Requests will be rejected")
	address = flag.String(addrFlag, defaultAddress, "address on which server should listen on. default is localhost:3001")
	socketDir = flag.String(socketDirFlag, defaultSocketDir, "directory in which per-player mpv IPC sockets are created")

	flag.Parse()
}

func main() {
	mediaLibrary, err := library.NewLibrary(library.Config{
		ErrWriter: os.Stderr,
		OutWriter: os.Stdout,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)

		return
	}
	defer mediaLibrary.Close()

	var mediaDirectories []string
	if len(dir.Values()) == 0 {
		wd, err := os.Getwd()
		if err == nil {
			mediaDirectories = append(mediaDirectories, wd)
		}
	} else {
		mediaDirectories = append(mediaDirectories, dir.Values()...)
	}

	for _, mediaDirectory := range mediaDirectories {
		err := mediaLibrary.AddDirectory(mediaDirectory)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", err)

			return
		}
	}
	fmt.Fprintf(os.Stdout, "directories being watched for media files:\n%s\n", strings.Join(mediaDirectories, "\n"))

	playerEngine := mpvengine.NewEngine(mpvengine.Config{
		SocketDir: *socketDir,
		ErrWriter: os.Stderr,
		OutWriter: os.Stdout,
	})

	bridgeServer := bridge.NewServer(bridge.Config{
		Engine:    playerEngine,
		Host:      presentation.NewVirtual(),
		Resolver:  mediaLibrary,
		ErrWriter: os.Stderr,
		OutWriter: os.Stdout,
	})
	defer bridgeServer.Close()

	sseServer := sse.NewServer(sse.Config{
		ErrWriter: os.Stderr,
		OutWriter: os.Stdout,
	})
	bridgeServer.SubscribeToEvents(sseServer)

	restServer := rest.NewServer(rest.Config{
		AllowCORS: *allowCORS,
		ErrWriter: os.Stderr,
		OutWriter: os.Stdout,
		Bridge:    bridgeServer,
	})

	mux := http.NewServeMux()
	mux.Handle("/rest/", restServer.Handler())
	mux.Handle("/sse/", sseServer.Handler())

	fmt.Fprintf(os.Stdout, "listening on %s\n", *address)
	err = http.ListenAndServe(*address, mux)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
	}
}
