// Command rmigen generates a typed Go remote interface, stub adapter, and
// skeleton constructor from a .proto file's service/rpc declarations.
//
// This is a build tool consumed by other people's interface definitions,
// not a sample application of the runtime: it plays the role Design Notes
// strategy (a) assigns to codegen, giving stub.Invoker a statically typed
// face. Grounded on cmd/micro-rpc-code-gen/main.go's flag layout and
// logrus setup.
package main

import (
	"flag"
	"os"
	"path"

	log "github.com/sirupsen/logrus"

	"github.com/f0mster/rmi/internal/rmigen"
)

func main() {
	fDebug := flag.Bool("d", false, "debug mode")
	fProto := flag.String("proto", "", "path to proto file describing the remote interface")
	fOut := flag.String("out", "", "output directory (defaults to the proto file's directory)")
	flag.Parse()

	if *fDebug {
		log.SetLevel(log.DebugLevel)
	}

	if *fProto == "" {
		log.Fatal("rmigen: -proto flag must be used")
	}

	outDir := *fOut
	if outDir == "" {
		outDir = path.Dir(*fProto)
	}
	outFile := path.Join(outDir, path.Base(*fProto)+".rmi.go")

	if err := rmigen.Generate(*fProto, outFile); err != nil {
		log.WithError(err).Fatal("rmigen: generation failed")
	}
	log.WithField("out", outFile).Info("rmigen: done")
	os.Exit(0)
}
