// ABOUTME: Graphviz rendering of the workspace link topology
// ABOUTME: Local workspaces point at the peer instances they replicate to
package viz

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"

	"github.com/harperreed/claimsync/db"
	"github.com/harperreed/claimsync/models"
)

type GraphGenerator struct {
	db *sql.DB
}

func NewGraphGenerator(database *sql.DB) *GraphGenerator {
	return &GraphGenerator{db: database}
}

// GenerateLinkGraph renders every workspace and its links in the given
// format (graphviz.XDOT for DOT source, graphviz.SVG for an image).
func (g *GraphGenerator) GenerateLinkGraph(ctx context.Context, format graphviz.Format) (string, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create graphviz instance: %w", err)
	}
	defer func() { _ = gv.Close() }()

	graph, err := gv.Graph()
	if err != nil {
		return "", fmt.Errorf("failed to create graph: %w", err)
	}
	defer func() { _ = graph.Close() }()

	graph.SetRankDir(cgraph.LRRank)
	graph.SetLabel("Linked Workspaces")

	workspaces, err := db.ListWorkspaces(ctx, g.db)
	if err != nil {
		return "", err
	}
	links, err := db.ListLinkedWorkspaces(ctx, g.db, "")
	if err != nil {
		return "", err
	}

	wsNodes := make(map[string]*cgraph.Node)
	for _, ws := range workspaces {
		node, err := graph.CreateNodeByName("ws_" + ws.ID)
		if err != nil {
			return "", fmt.Errorf("failed to create workspace node: %w", err)
		}
		node.SetLabel(ws.Name)
		node.SetShape(cgraph.BoxShape)
		wsNodes[ws.ID] = node
	}

	peerNodes := make(map[string]*cgraph.Node)
	for _, link := range links {
		peer, exists := peerNodes[link.ExternalInstanceURL]
		if !exists {
			peer, err = graph.CreateNodeByName("peer_" + link.ExternalInstanceURL)
			if err != nil {
				return "", fmt.Errorf("failed to create peer node: %w", err)
			}
			label := link.ExternalInstanceURL
			if link.InstanceName != "" {
				label = link.InstanceName + "\n" + link.ExternalInstanceURL
			}
			peer.SetLabel(label)
			peer.SetShape(cgraph.EllipseShape)
			peerNodes[link.ExternalInstanceURL] = peer
		}

		from, ok := wsNodes[link.WorkspaceID]
		if !ok {
			continue
		}

		edge, err := graph.CreateEdgeByName(link.ID, from, peer)
		if err != nil {
			return "", fmt.Errorf("failed to create edge: %w", err)
		}
		edge.SetLabel(edgeLabel(link))
		if link.Status != models.LinkStatusActive {
			edge.SetStyle(cgraph.DashedEdgeStyle)
		}
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, format, &buf); err != nil {
		return "", fmt.Errorf("failed to render graph: %w", err)
	}

	return buf.String(), nil
}

func edgeLabel(link models.LinkedWorkspace) string {
	if link.Status != models.LinkStatusActive {
		return link.Status
	}
	if link.LastSyncedAt == nil {
		return "never synced"
	}
	return "synced " + link.LastSyncedAt.Local().Format("2006-01-02 15:04")
}
