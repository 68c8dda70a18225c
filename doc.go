/*
Package stream-server provides the HTTP/1.1 protocol core of a media-streaming server.

Stream-Server implements the full request path from raw octets to handler dispatch
without net/http: an incremental HTTP/1.1 tokenizer, request/response abstractions,
a pattern-based serve mux with virtual-host and hijacker support, and a response
writer that handles chunked and fixed-length body framing on the hot path of every
live stream.

Features

  - Incremental HTTP/1.1 tokenizer: pull-based event stream, no callbacks
  - Pattern router: exact match, subtree prefix, trailing-slash redirects,
    virtual hosts, hijacker fallback
  - Response framing: chunked transfer encoding and fixed-length bodies with
    content-type sniffing
  - CORS front mux with preflight interception
  - Keep-alive and pipelined request handling
  - Buffer pooling and per-request Prometheus metrics

Quick Start

Basic usage example:

	package main

	import (
	    "log"

	    "github.com/searchktools/stream-server/app"
	    "github.com/searchktools/stream-server/config"
	    "github.com/searchktools/stream-server/core/http"
	)

	func main() {
	    cfg, err := config.New()
	    if err != nil {
	        log.Fatal(err)
	    }

	    application := app.New(cfg)
	    application.Mux().Handle("/api/v1/streams", http.HandlerFunc(listStreams))
	    application.Mux().Handle("/live/", http.HandlerFunc(serveLive))

	    if err := application.Run(); err != nil {
	        log.Fatal(err)
	    }
	}

Modules

The repository is organized into several modules:

  - app: Application lifecycle management
  - config: Configuration loading (flags, YAML, environment)
  - core: Connection handling, keep-alive loop and graceful shutdown
  - core/tokenizer: HTTP/1.1 byte-stream tokenizer and URL field parser
  - core/http: Header, URI, Message, ResponseWriter, status and sniffing tables
  - core/router: Serve mux, CORS mux, hijackers
  - core/middleware: Handler middleware (recovery, logging, request IDs)
  - core/stream: Live channel hub relaying frames to HTTP viewers
  - core/pools: Read and copy buffer pooling
  - core/observability: Prometheus metrics

For more information, see https://github.com/searchktools/stream-server
*/
package streamserver
