// Package main exports the approval rule table as YAML and checks a saved
// export against the current table for transitions that were removed.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"approvals/internal/workflow"

	"gopkg.in/yaml.v3"
)

type edgeDoc struct {
	From      string `yaml:"from"`
	To        string `yaml:"to"`
	Role      string `yaml:"role"`
	Condition string `yaml:"condition,omitempty"`
}

type workflowDoc struct {
	Path  []string  `yaml:"path"`
	Edges []edgeDoc `yaml:"edges"`
}

func main() {
	exportOut := flag.String("export", "", "write the current rule table to this YAML path (- for stdout)")
	basePath := flag.String("base", "", "previously exported YAML to check the current table against")
	flag.Parse()

	switch {
	case *exportOut != "":
		if err := export(*exportOut); err != nil {
			fmt.Fprintf(os.Stderr, "export failed: %v\n", err)
			os.Exit(1)
		}
	case *basePath != "":
		base, err := loadDoc(*basePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load base export: %v\n", err)
			os.Exit(1)
		}
		issues := compare(base, currentDoc())
		if len(issues) > 0 {
			fmt.Fprintln(os.Stderr, "workflow compatibility check failed:")
			for _, issue := range issues {
				fmt.Fprintf(os.Stderr, "- %s\n", issue)
			}
			os.Exit(1)
		}
		fmt.Println("workflow compatibility check passed")
	default:
		fmt.Fprintln(os.Stderr, "usage: workflow-compat -export <path|-> | -base <path>")
		os.Exit(2)
	}
}

func currentDoc() workflowDoc {
	rules := workflow.DefaultRules()
	doc := workflowDoc{Edges: make([]edgeDoc, 0, len(rules))}
	for _, s := range workflow.LinearPath() {
		doc.Path = append(doc.Path, string(s))
	}
	for _, e := range rules {
		doc.Edges = append(doc.Edges, edgeDoc{
			From:      string(e.From),
			To:        string(e.To),
			Role:      string(e.Role),
			Condition: e.Condition,
		})
	}
	return doc
}

func export(path string) error {
	var w io.Writer = os.Stdout
	if path != "-" {
		// #nosec G304: path comes from CLI flags in a dev tool
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		w = f
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(currentDoc()); err != nil {
		return err
	}
	return enc.Close()
}

func loadDoc(path string) (workflowDoc, error) {
	// #nosec G304: path comes from CLI flags in a dev tool
	raw, err := os.ReadFile(path)
	if err != nil {
		return workflowDoc{}, err
	}
	return parseDoc(raw)
}

func parseDoc(raw []byte) (workflowDoc, error) {
	var doc workflowDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return workflowDoc{}, err
	}
	if len(doc.Edges) == 0 {
		return workflowDoc{}, errors.New("export has no edges")
	}
	return doc, nil
}

func edgeKey(e edgeDoc) string {
	key := fmt.Sprintf("%s -[%s]-> %s", e.From, e.Role, e.To)
	if e.Condition != "" {
		key += " when " + e.Condition
	}
	return key
}

// compare lists what base offered that revision no longer does: transitions,
// roles able to act on a status, and statuses on the linear path.
func compare(base, revision workflowDoc) []string {
	var issues []string

	revEdges := make(map[string]struct{}, len(revision.Edges))
	revActors := make(map[string]struct{})
	for _, e := range revision.Edges {
		revEdges[edgeKey(e)] = struct{}{}
		revActors[e.From+"/"+e.Role] = struct{}{}
	}

	reportedActors := make(map[string]struct{})
	for _, e := range base.Edges {
		if _, ok := revEdges[edgeKey(e)]; !ok {
			issues = append(issues, "removed transition: "+edgeKey(e))
		}
		actor := e.From + "/" + e.Role
		if _, ok := revActors[actor]; ok {
			continue
		}
		if _, seen := reportedActors[actor]; !seen {
			reportedActors[actor] = struct{}{}
			issues = append(issues, fmt.Sprintf("role %s can no longer act on %s", e.Role, e.From))
		}
	}

	onPath := make(map[string]struct{}, len(revision.Path))
	for _, s := range revision.Path {
		onPath[s] = struct{}{}
	}
	for _, s := range base.Path {
		if _, ok := onPath[s]; !ok {
			issues = append(issues, "status left the linear path: "+strings.ToLower(s))
		}
	}

	sort.Strings(issues)
	return issues
}
