package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeatlas-io/codeatlas/internal/graph"
)

// Test Plan for the TypeScript and JavaScript extractors:
// - Classes with heritage, methods and field attributes
// - extends resolves within the file; implements produces no edge
// - Function declarations and function-valued consts become function nodes
// - JSDoc blocks populate brief and full documentation
// - TSX and JSX sources parse with their JSX-capable grammars
// - Same-file and this calls produce invokes edges

func TestParseTypeScriptFile_ClassesAndHeritage(t *testing.T) {
	t.Parallel()

	source := `export abstract class Presenter {
  protected events: EventBus;

  bind(): void {
    this.refresh();
  }

  refresh(): void {}
}

export class TablePresenter extends Presenter implements Disposable {
  rows: number = 0;

  render(data: Row[]): string {
    return format(data);
  }
}

export function format(data: Row[]): string {
  return JSON.stringify(data);
}
`
	fg, err := parseTypeScriptFile("ui.ts", []byte(source))
	require.NoError(t, err)

	nodes := nodesByID(fg)

	presenter, ok := nodes["ui.ts::Presenter"]
	require.True(t, ok)
	require.IsType(t, graph.ClassMetadata{}, presenter.Metadata)
	presenterMD := presenter.Metadata.(graph.ClassMetadata)
	assert.Equal(t, []string{"bind", "refresh"}, presenterMD.Functions)
	assert.Equal(t, []string{"events"}, presenterMD.Attributes)

	table := nodes["ui.ts::TablePresenter"]
	require.IsType(t, graph.ClassMetadata{}, table.Metadata)
	assert.Equal(t, []string{"rows"}, table.Metadata.(graph.ClassMetadata).Attributes)

	assert.True(t, hasEdge(fg, graph.EdgeInherit, "ui.ts::TablePresenter", "ui.ts::Presenter"))
	for _, e := range edgesOfType(fg, graph.EdgeInherit) {
		assert.NotEqual(t, "Disposable", e.Target)
	}

	render := nodes["ui.ts::TablePresenter.render"]
	require.IsType(t, graph.FunctionMetadata{}, render.Metadata)
	renderMD := render.Metadata.(graph.FunctionMetadata)
	assert.Equal(t, []string{"data"}, renderMD.Parameters)
	assert.Equal(t, "string", renderMD.Returns)

	assert.True(t, hasEdge(fg, graph.EdgeInvokes, "ui.ts::Presenter.bind", "ui.ts::Presenter.refresh"))
	assert.True(t, hasEdge(fg, graph.EdgeInvokes, "ui.ts::TablePresenter.render", "ui.ts::format"))
}

func TestParseTypeScriptFile_ArrowFunctionConst(t *testing.T) {
	t.Parallel()

	source := `export function format(rows: Row[]): string {
  return JSON.stringify(rows);
}

/** Formats one row. */
export const formatRow = (row: Row): string => format([row]);
`
	fg, err := parseTypeScriptFile("fmt.ts", []byte(source))
	require.NoError(t, err)

	nodes := nodesByID(fg)
	formatRow, ok := nodes["fmt.ts::formatRow"]
	require.True(t, ok)
	assert.Equal(t, graph.NodeFunction, formatRow.Type)

	require.IsType(t, graph.FunctionMetadata{}, formatRow.Metadata)
	md := formatRow.Metadata.(graph.FunctionMetadata)
	assert.Equal(t, []string{"row"}, md.Parameters)
	assert.Equal(t, "string", md.Returns)
	assert.Equal(t, "Formats one row.", md.BriefSummary)

	assert.True(t, hasEdge(fg, graph.EdgeInvokes, "fmt.ts::formatRow", "fmt.ts::format"))

	fileMD := fg.Nodes[0].Metadata.(graph.FileMetadata)
	assert.Equal(t, []string{"fmt.ts::format", "fmt.ts::formatRow"}, fileMD.Functions)
}

func TestParseTSXFile_ComponentWithJSX(t *testing.T) {
	t.Parallel()

	source := `export const Header = ({ title }: Props): JSX.Element => <h1>{title}</h1>;
`
	fg, err := parseTSXFile("Header.tsx", []byte(source))
	require.NoError(t, err)

	nodes := nodesByID(fg)
	header, ok := nodes["Header.tsx::Header"]
	require.True(t, ok)

	require.IsType(t, graph.FunctionMetadata{}, header.Metadata)
	md := header.Metadata.(graph.FunctionMetadata)
	assert.Equal(t, []string{"title"}, md.Parameters)
	assert.Equal(t, "JSX.Element", md.Returns)
}

func TestParseJavaScriptFile_ClassAndJSX(t *testing.T) {
	t.Parallel()

	source := `/** Renders the badge. */
export function Badge({ label }) {
  return <span className="badge">{label}</span>;
}

export class Panel extends React.Component {
  render() {
    return <div>{this.props.children}</div>;
  }
}
`
	fg, err := parseJavaScriptFile("Panel.jsx", []byte(source))
	require.NoError(t, err)

	nodes := nodesByID(fg)

	badge, ok := nodes["Panel.jsx::Badge"]
	require.True(t, ok)
	require.IsType(t, graph.FunctionMetadata{}, badge.Metadata)
	badgeMD := badge.Metadata.(graph.FunctionMetadata)
	assert.Equal(t, []string{"label"}, badgeMD.Parameters)
	assert.Equal(t, "Renders the badge.", badgeMD.BriefSummary)

	panel, ok := nodes["Panel.jsx::Panel"]
	require.True(t, ok)
	assert.Equal(t, []string{"render"}, panel.Metadata.(graph.ClassMetadata).Functions)

	// React.Component dangles by name.
	assert.True(t, hasEdge(fg, graph.EdgeInherit, "Panel.jsx::Panel", "React.Component"))
}

func TestParseJavaScriptFile_MethodCalls(t *testing.T) {
	t.Parallel()

	source := `class Queue {
  push(item) {
    this.grow();
  }

  grow() {}
}

function drain(q) {
  tick();
}

function tick() {}
`
	fg, err := parseJavaScriptFile("queue.js", []byte(source))
	require.NoError(t, err)

	assert.True(t, hasEdge(fg, graph.EdgeInvokes, "queue.js::Queue.push", "queue.js::Queue.grow"))
	assert.True(t, hasEdge(fg, graph.EdgeInvokes, "queue.js::drain", "queue.js::tick"))
}
