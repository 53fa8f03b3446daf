package main

import (
	"bufio"
	"flag"
	"log"
	"math/rand/v2"
	"os"

	"github.com/peterstace/spatialjoin/internal/cli"
	"github.com/peterstace/spatialjoin/rtree"
)

func main() {
	capacity := flag.Int("capacity", 16, "maximum children per node")
	seed := flag.Uint64("seed", 1, "seed for tower radii and synthetic data")
	flag.Parse()

	tree, err := rtree.New(*capacity)
	if err != nil {
		log.Fatal(err)
	}
	scanner := bufio.NewScanner(os.Stdin)
	demo := cli.NewCli(scanner, os.Stdout, tree, rand.NewPCG(*seed, *seed))
	demo.Start()
}
