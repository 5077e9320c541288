// Command memcache-cli is a small interactive REPL over a Client, grounded
// on pior-memcache's cmd/memcache-cli tool but rewired against the
// Operation/Future core instead of the meta protocol Commands type.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hlagg/memcache"
)

func main() {
	servers := flag.String("servers", "localhost:11211", "comma-separated list of memcached servers")
	flag.Parse()

	fmt.Println("Memcache CLI Tool")
	fmt.Println("================")
	fmt.Println("Commands: get <key>, set <key> <value> [ttl], add <key> <value> [ttl],")
	fmt.Println("          replace <key> <value> [ttl], delete <key>, incr <key> <delta>,")
	fmt.Println("          decr <key> <delta>, multi-get <key1> <key2> ..., stats, versions,")
	fmt.Println("          flush, noop, quit")
	fmt.Println()

	cfg := memcache.Config{Servers: strings.Split(*servers, ",")}
	client, err := memcache.NewClient(cfg)
	if err != nil {
		fmt.Printf("Failed to create client: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		command := strings.ToLower(parts[0])
		ctx := context.Background()

		switch command {
		case "get":
			if len(parts) != 2 {
				fmt.Println("Usage: get <key>")
				continue
			}
			handleGet(ctx, client, parts[1])

		case "set":
			args, ok := parseStoreArgs(parts)
			if !ok {
				fmt.Println("Usage: set <key> <value> [ttl_seconds]")
				continue
			}
			handleStore(ctx, client, client.Set, args)

		case "add":
			args, ok := parseStoreArgs(parts)
			if !ok {
				fmt.Println("Usage: add <key> <value> [ttl_seconds]")
				continue
			}
			handleStore(ctx, client, client.Add, args)

		case "replace":
			args, ok := parseStoreArgs(parts)
			if !ok {
				fmt.Println("Usage: replace <key> <value> [ttl_seconds]")
				continue
			}
			handleStore(ctx, client, client.Replace, args)

		case "delete", "del":
			if len(parts) != 2 {
				fmt.Println("Usage: delete <key>")
				continue
			}
			handleDelete(ctx, client, parts[1])

		case "incr":
			if len(parts) != 3 {
				fmt.Println("Usage: incr <key> <delta>")
				continue
			}
			handleMutate(ctx, client, client.Incr, parts[1], parts[2])

		case "decr":
			if len(parts) != 3 {
				fmt.Println("Usage: decr <key> <delta>")
				continue
			}
			handleMutate(ctx, client, client.Decr, parts[1], parts[2])

		case "multi-get", "mget":
			if len(parts) < 2 {
				fmt.Println("Usage: multi-get <key1> <key2> ...")
				continue
			}
			handleMultiGet(ctx, client, parts[1:])

		case "stats":
			handleStats(client)

		case "versions":
			handleVersions(ctx, client)

		case "flush":
			handleFlush(ctx, client)

		case "noop":
			handleNoop(ctx, client)

		case "help":
			fmt.Println("See the banner printed at startup.")

		case "quit", "exit":
			fmt.Println("Goodbye!")
			return

		default:
			fmt.Printf("Unknown command: %s. Type 'help' for available commands.\n", command)
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Printf("Error reading input: %v\n", err)
	}
}

type storeArgs struct {
	key   string
	value string
	ttl   int64
}

func parseStoreArgs(parts []string) (storeArgs, bool) {
	if len(parts) < 3 || len(parts) > 4 {
		return storeArgs{}, false
	}
	var ttl int64
	if len(parts) == 4 {
		v, err := strconv.ParseInt(parts[3], 10, 64)
		if err != nil {
			return storeArgs{}, false
		}
		ttl = v
	}
	return storeArgs{key: parts[1], value: parts[2], ttl: ttl}, true
}

func handleGet(ctx context.Context, client *memcache.Client, key string) {
	start := time.Now()
	item, err := client.Get(ctx, key)
	duration := time.Since(start)
	if err != nil {
		fmt.Printf("Error: %v (took %v)\n", err, duration)
		return
	}
	if !item.Found {
		fmt.Printf("Key not found (took %v)\n", duration)
		return
	}
	fmt.Printf("Value: %s (took %v)\n", string(item.Value.Bytes), duration)
	if item.Value.Flags != 0 {
		fmt.Printf("Flags: %d\n", item.Value.Flags)
	}
}

func handleStore(ctx context.Context, client *memcache.Client, op func(context.Context, string, memcache.CachedData, int64) error, args storeArgs) {
	start := time.Now()
	err := op(ctx, args.key, memcache.CachedData{Bytes: []byte(args.value)}, args.ttl)
	duration := time.Since(start)
	if err != nil {
		fmt.Printf("Error: %v (took %v)\n", err, duration)
		return
	}
	fmt.Printf("Stored successfully (took %v)\n", duration)
}

func handleDelete(ctx context.Context, client *memcache.Client, key string) {
	start := time.Now()
	found, err := client.Delete(ctx, key)
	duration := time.Since(start)
	if err != nil {
		fmt.Printf("Error: %v (took %v)\n", err, duration)
		return
	}
	if !found {
		fmt.Printf("Key not found (took %v)\n", duration)
		return
	}
	fmt.Printf("Delete successful (took %v)\n", duration)
}

func handleMutate(ctx context.Context, client *memcache.Client, op func(context.Context, string, uint64) (int64, error), key, deltaStr string) {
	delta, err := strconv.ParseUint(deltaStr, 10, 64)
	if err != nil {
		fmt.Printf("Invalid delta: %v\n", err)
		return
	}
	start := time.Now()
	n, err := op(ctx, key, delta)
	duration := time.Since(start)
	if err != nil {
		fmt.Printf("Error: %v (took %v)\n", err, duration)
		return
	}
	if n < 0 {
		fmt.Printf("Key not found (took %v)\n", duration)
		return
	}
	fmt.Printf("New value: %d (took %v)\n", n, duration)
}

func handleMultiGet(ctx context.Context, client *memcache.Client, keys []string) {
	start := time.Now()
	items, err := client.GetMulti(ctx, keys)
	duration := time.Since(start)
	if err != nil {
		fmt.Printf("Error: %v (took %v)\n", err, duration)
		return
	}

	byKey := make(map[string]memcache.Item, len(items))
	for _, it := range items {
		byKey[it.Key] = it
	}
	found := 0
	for _, k := range keys {
		if it, ok := byKey[k]; ok {
			found++
			fmt.Printf("  %s: %s\n", k, string(it.Value.Bytes))
		} else {
			fmt.Printf("  %s: <not found>\n", k)
		}
	}
	fmt.Printf("Retrieved %d out of %d keys (took %v)\n", found, len(keys), duration)
}

func handleStats(client *memcache.Client) {
	stats := client.Stats()
	if len(stats) == 0 {
		fmt.Println("No statistics available")
		return
	}
	fmt.Println("Server Statistics:")
	for _, s := range stats {
		fmt.Printf("%s:\n", s.Addr)
		fmt.Printf("  Submitted: %d  SubmitFailed: %d\n", s.Submitted, s.SubmitFailed)
		fmt.Printf("  Completed: %d  Failed: %d\n", s.Completed, s.Failed)
		fmt.Printf("  Reconnects: %d  ReconnectFailed: %d\n", s.Reconnects, s.ReconnectFailed)
		fmt.Println()
	}
}

func handleVersions(ctx context.Context, client *memcache.Client) {
	start := time.Now()
	versions, err := client.Versions(ctx)
	duration := time.Since(start)
	if err != nil {
		fmt.Printf("Error: %v (took %v)\n", err, duration)
		return
	}
	for addr, v := range versions {
		fmt.Printf("  %s: %s\n", addr, v)
	}
}

func handleFlush(ctx context.Context, client *memcache.Client) {
	start := time.Now()
	err := client.FlushAll(ctx, -1)
	duration := time.Since(start)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		fmt.Printf("Error: %v (took %v)\n", err, duration)
		return
	}
	fmt.Printf("Flush successful (took %v)\n", duration)
}

func handleNoop(ctx context.Context, client *memcache.Client) {
	start := time.Now()
	err := client.Noop(ctx)
	duration := time.Since(start)
	if err != nil {
		fmt.Printf("Noop failed: %v (took %v)\n", err, duration)
		return
	}
	fmt.Printf("Noop successful (took %v)\n", duration)
}
