package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/nodemind/internal/mindmap"
)

func init() {
	mapCmd := &cobra.Command{
		Use:   "map",
		Short: "Inspect and lay out the mind map",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print node positions, edges and their curves",
		Run:   runMapShow,
	}

	layout := &cobra.Command{
		Use:   "layout",
		Short: "Save positions, placing unplaced notes on the circle",
		Run:   runMapLayout,
	}
	layout.Flags().Bool("reset", false, "Move every note back onto the circle")

	watch := &cobra.Command{
		Use:   "watch",
		Short: "Print the map state after every change, including writes by other processes",
		Run:   runMapWatch,
	}

	mapCmd.AddCommand(show, layout, watch)
	RootCmd.AddCommand(mapCmd)
}

func engineOptions(a *app) mindmap.Options {
	opts := mindmap.OptionsFromConfig(a.cfg.MindMap)
	opts.Logger = a.logger
	return opts
}

// startEngine starts an engine and waits for the first loaded state.
func startEngine(ctx context.Context, a *app) (*mindmap.Engine, mindmap.State, error) {
	e := mindmap.New(nodeRepo(a), engineOptions(a))
	states := e.Subscribe()
	if err := e.Start(ctx); err != nil {
		return e, mindmap.State{}, err
	}
	for {
		select {
		case st, ok := <-states:
			if !ok {
				return e, st, errors.New("engine closed")
			}
			if st.Loading {
				continue
			}
			if st.Message != "" {
				return e, st, errors.New(st.Message)
			}
			return e, st, nil
		case <-ctx.Done():
			return e, mindmap.State{}, ctx.Err()
		}
	}
}

// mapView is the printable form of the map.
type mapView struct {
	Nodes  []mindmap.NodePosition `json:"nodes" yaml:"nodes"`
	Edges  []edgeView             `json:"edges" yaml:"edges"`
	Bounds *boundsView            `json:"bounds,omitempty" yaml:"bounds,omitempty"`
}

type edgeView struct {
	mindmap.Connection `yaml:",inline"`
	Curve              mindmap.Curve `json:"curve" yaml:"curve"`
}

type boundsView struct {
	Min mindmap.Point `json:"min" yaml:"min"`
	Max mindmap.Point `json:"max" yaml:"max"`
}

func newMapView(st mindmap.State) mapView {
	v := mapView{Nodes: st.NodePositions, Edges: []edgeView{}}
	if v.Nodes == nil {
		v.Nodes = []mindmap.NodePosition{}
	}
	for _, c := range st.Connections {
		v.Edges = append(v.Edges, edgeView{Connection: c, Curve: mindmap.EdgeCurve(c)})
	}
	if lo, hi, ok := st.Bounds(); ok {
		v.Bounds = &boundsView{Min: lo, Max: hi}
	}
	return v
}

func writeMapText(w io.Writer, v mapView) {
	titles := map[string]string{}
	for _, p := range v.Nodes {
		titles[p.Node.ID] = p.Node.Title
		fmt.Fprintf(w, "%s  (%.1f, %.1f)  %s\n", p.Node.ID, p.X, p.Y, p.Node.Title)
	}
	for _, e := range v.Edges {
		fmt.Fprintf(w, "%s -- %s\n", titles[e.FromID], titles[e.ToID])
	}
}

func runMapShow(cmd *cobra.Command, args []string) {
	a := mustOpen(cmd)
	defer a.Close()

	e, st, err := startEngine(cmd.Context(), a)
	defer e.Close()
	if err != nil {
		exitErr("load map", err)
	}
	v := newMapView(st)
	printOut(v, func(w io.Writer) { writeMapText(w, v) })
}

func runMapLayout(cmd *cobra.Command, args []string) {
	reset, _ := cmd.Flags().GetBool("reset")

	a := mustOpen(cmd)
	defer a.Close()

	e, st, err := startEngine(cmd.Context(), a)
	defer e.Close()
	if err != nil {
		exitErr("load map", err)
	}

	if reset {
		n := len(st.NodePositions)
		for i, p := range st.NodePositions {
			x, y := mindmap.CircularPosition(i, n, a.cfg.MindMap.OriginX, a.cfg.MindMap.OriginY)
			e.MoveNode(p.Node.ID, x, y)
		}
	}
	<-e.SaveMindMap()

	st = e.State()
	if st.Message != mindmap.MsgSaved {
		exitErr("layout", errors.New(st.Message))
	}
	v := newMapView(st)
	printOut(v, func(w io.Writer) { writeMapText(w, v) })
}

func runMapWatch(cmd *cobra.Command, args []string) {
	a := mustOpen(cmd)
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := a.store.Watch(ctx); err != nil {
			a.logger.Warn("watch database", zap.Error(err))
		}
	}()

	e, _, err := startEngine(ctx, a)
	defer e.Close()
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		exitErr("load map", err)
	}

	enc := json.NewEncoder(os.Stdout)
	states := e.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-states:
			if !ok {
				return
			}
			if st.Loading {
				continue
			}
			v := newMapView(st)
			if formatFlag == "text" {
				writeMapText(os.Stdout, v)
				fmt.Println()
				continue
			}
			if err := enc.Encode(v); err != nil {
				exitErr("output", err)
			}
		}
	}
}
