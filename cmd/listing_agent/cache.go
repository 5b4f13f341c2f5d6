package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Maintain the listing cache",
}

var cacheInvalidateCmd = &cobra.Command{
	Use:   "invalidate <ref>",
	Short: "Drop the cached listing for one product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			if err := a.svc.InvalidateCache(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Invalidated %s\n", args[0])
			return nil
		})
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop every cached listing",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			if err := a.svc.ClearAllCache(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("Cache cleared")
			return nil
		})
	},
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Reclaim space held by expired entries",
	Long:  "Deletes expired rows from the postgres cache, or runs value-log GC on the badger cache. The memory cache has nothing to purge.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			return purgeCache(cmd.Context(), a)
		})
	},
}

// expiryPurger is implemented by caches that keep expired rows around.
type expiryPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// garbageCollector is implemented by caches with reclaimable on-disk space.
type garbageCollector interface {
	CollectGarbage() error
}

func purgeCache(ctx context.Context, a *app) error {
	switch c := a.cache.(type) {
	case expiryPurger:
		n, err := c.PurgeExpired(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Purged %d expired entries\n", n)
	case garbageCollector:
		if err := c.CollectGarbage(); err != nil {
			return err
		}
		fmt.Println("Value log compacted")
	default:
		fmt.Printf("Nothing to purge for the %s cache\n", a.cfg.Cache.Backend)
	}
	return nil
}

func init() {
	cacheCmd.AddCommand(cacheInvalidateCmd, cacheClearCmd, cachePurgeCmd)
	rootCmd.AddCommand(cacheCmd)
}

// withApp builds the app, runs fn and closes the backends.
func withApp(ctx context.Context, fn func(a *app) error) (err error) {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(); err == nil {
			err = closeErr
		}
	}()
	return fn(a)
}
