// Package discovery keeps the pool's backend host list in sync with the
// live set of endpoints registered in ZooKeeper.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/go-zookeeper/zk"

	"kcvstore/pkg/listener"
)

type iHostList interface {
	SetHosts(hosts []string)
}

// Watcher follows the children of <rootPath>/endpoints and applies every
// membership change to the host list. It only ever replaces the list;
// borrowing from the pool is never blocked by a membership event.
type Watcher struct {
	conn     *zk.Conn
	rootPath string

	updates chan []string
	apply   *listener.Listener[[]string]
	cancel  func()
}

// servers: ["zk1:2181", "zk2:2181"]
func NewWatcher(servers []string, rootPath string, hosts iHostList) (*Watcher, error) {
	conn, _, err := zk.Connect(servers, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("zk connect: %w", err)
	}

	w := &Watcher{
		conn:     conn,
		rootPath: rootPath,
		updates:  make(chan []string, 1),
		cancel:   func() {},
	}
	w.apply = listener.New(w.updates, func(endpoints []string) error {
		hosts.SetHosts(endpoints)
		return nil
	})
	return w, nil
}

func (w *Watcher) Close() error {
	w.cancel()
	w.apply.Stop()
	w.conn.Close()
	return nil
}

func (w *Watcher) ensurePath(path string) error {
	parts := strings.Split(path, "/")
	cur := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		cur = cur + "/" + p
		exists, _, err := w.conn.Exists(cur)
		if err != nil {
			return err
		}
		if !exists {
			_, err = w.conn.Create(cur, nil, 0, zk.WorldACL(zk.PermAll))
			if err != nil && err != zk.ErrNodeExists {
				return err
			}
		}
	}
	return nil
}

// Register creates an ephemeral node for a backend endpoint, so that the
// endpoint disappears from the ring when its session dies.
func (w *Watcher) Register(addr string) error {
	if err := w.waitConnected(10 * time.Second); err != nil {
		return err
	}
	if err := w.ensurePath(w.rootPath + "/endpoints"); err != nil {
		return fmt.Errorf("ensure endpoints path: %w", err)
	}

	nodePath := fmt.Sprintf("%s/endpoints/%s", w.rootPath, addr)
	_, err := w.conn.Create(nodePath, nil, zk.FlagEphemeral, zk.WorldACL(zk.PermAll))
	if err != nil && err != zk.ErrNodeExists {
		return fmt.Errorf("create ephemeral endpoint: %w", err)
	}

	slog.Info("registered backend endpoint", "path", nodePath)
	return nil
}

// Endpoints reads the current live endpoint set.
func (w *Watcher) Endpoints() ([]string, error) {
	children, _, err := w.conn.Children(w.rootPath + "/endpoints")
	if err != nil {
		return nil, fmt.Errorf("zk children: %w", err)
	}
	sort.Strings(children)
	return children, nil
}

// Run watches /endpoints until ctx is cancelled, pushing every observed
// membership through the apply listener.
func (w *Watcher) Run(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.apply.Start(ctx)

	go func() {
		for {
			children, _, ch, err := w.conn.ChildrenW(w.rootPath + "/endpoints")
			if err != nil {
				slog.Warn("zk watch failed, retrying", "err", err)
				select {
				case <-time.After(2 * time.Second):
					continue
				case <-ctx.Done():
					return
				}
			}

			sort.Strings(children)
			select {
			case w.updates <- children:
			case <-ctx.Done():
				return
			}

			select {
			case ev := <-ch:
				slog.Debug("zk membership event", "type", ev.Type.String(), "path", ev.Path)
			case <-ctx.Done():
				slog.Info("zk watch stopped")
				return
			}
		}
	}()
}

func (w *Watcher) waitConnected(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		st := w.conn.State()
		if st == zk.StateConnected || st == zk.StateHasSession {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("zk: not connected after %s, state=%v", timeout, st)
		}
		time.Sleep(200 * time.Millisecond)
	}
}
