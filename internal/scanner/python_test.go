package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeatlas-io/codeatlas/internal/graph"
)

// Test Plan for the Python extractor:
// - Classes with bases, methods, attributes and nested classes
// - Bases resolve within the file, otherwise dangle by name
// - Docstrings populate brief and full documentation
// - Parameters keep declaration order including splat markers
// - Decorated definitions are unwrapped
// - Same-file and self calls produce invokes edges

func TestParsePythonFile_ClassStructure(t *testing.T) {
	t.Parallel()

	source := `"""Zoo module."""

class Animal:
    """Base animal."""

    kind = "generic"

    def speak(self):
        """Make a sound."""
        return "..."

class Dog(Animal, pkg.Mixin):
    def speak(self):
        return self.bark()

    def bark(self):
        return "woof"
`
	fg, err := parsePythonFile("lib/zoo.py", []byte(source))
	require.NoError(t, err)

	nodes := nodesByID(fg)

	animal, ok := nodes["lib/zoo.py::Animal"]
	require.True(t, ok)
	assert.Equal(t, graph.NodeClass, animal.Type)
	require.IsType(t, graph.ClassMetadata{}, animal.Metadata)
	animalMD := animal.Metadata.(graph.ClassMetadata)
	assert.Equal(t, []string{"speak"}, animalMD.Functions)
	assert.Equal(t, []string{"kind"}, animalMD.Attributes)
	assert.Equal(t, []string{"lib/zoo.py::Animal.speak"}, animalMD.Children)

	speak := nodes["lib/zoo.py::Animal.speak"]
	require.IsType(t, graph.FunctionMetadata{}, speak.Metadata)
	speakMD := speak.Metadata.(graph.FunctionMetadata)
	assert.Equal(t, []string{"self"}, speakMD.Parameters)
	assert.Equal(t, "Make a sound.", speakMD.BriefSummary)

	// Animal resolves in-file, pkg.Mixin dangles by name.
	assert.True(t, hasEdge(fg, graph.EdgeInherit, "lib/zoo.py::Dog", "lib/zoo.py::Animal"))
	assert.True(t, hasEdge(fg, graph.EdgeInherit, "lib/zoo.py::Dog", "pkg.Mixin"))

	assert.True(t, hasEdge(fg, graph.EdgeContains, "lib/zoo.py", "lib/zoo.py::Animal"))
	assert.True(t, hasEdge(fg, graph.EdgeContains, "lib/zoo.py::Dog", "lib/zoo.py::Dog.bark"))
	assert.True(t, hasEdge(fg, graph.EdgeInvokes, "lib/zoo.py::Dog.speak", "lib/zoo.py::Dog.bark"))

	fileMD := fg.Nodes[0].Metadata.(graph.FileMetadata)
	assert.Equal(t, []string{"lib/zoo.py::Animal", "lib/zoo.py::Dog"}, fileMD.Classes)
}

func TestParsePythonFile_NestedClass(t *testing.T) {
	t.Parallel()

	source := `class Outer:
    class Inner:
        def ping(self):
            pass
`
	fg, err := parsePythonFile("x.py", []byte(source))
	require.NoError(t, err)

	nodes := nodesByID(fg)

	outer := nodes["x.py::Outer"]
	require.IsType(t, graph.ClassMetadata{}, outer.Metadata)
	assert.Equal(t, []string{"x.py::Outer.Inner"}, outer.Metadata.(graph.ClassMetadata).Children)

	inner, ok := nodes["x.py::Outer.Inner"]
	require.True(t, ok)
	assert.Equal(t, graph.NodeClass, inner.Type)
	assert.Equal(t, []string{"ping"}, inner.Metadata.(graph.ClassMetadata).Functions)

	_, ok = nodes["x.py::Outer.Inner.ping"]
	assert.True(t, ok)

	// Nested classes hang off their parent, not the file.
	assert.True(t, hasEdge(fg, graph.EdgeContains, "x.py::Outer", "x.py::Outer.Inner"))
	assert.False(t, hasEdge(fg, graph.EdgeContains, "x.py", "x.py::Outer.Inner"))

	fileMD := fg.Nodes[0].Metadata.(graph.FileMetadata)
	assert.Equal(t, []string{"x.py::Outer"}, fileMD.Classes)
}

func TestParsePythonFile_FunctionSignature(t *testing.T) {
	t.Parallel()

	source := `def fetch(url, timeout=30, *args, **kwargs) -> Response:
    """Fetch a URL.

    Retries on failure.
    """
    return None
`
	fg, err := parsePythonFile("net.py", []byte(source))
	require.NoError(t, err)

	nodes := nodesByID(fg)
	fetch := nodes["net.py::fetch"]
	require.IsType(t, graph.FunctionMetadata{}, fetch.Metadata)
	md := fetch.Metadata.(graph.FunctionMetadata)

	assert.Equal(t, []string{"url", "timeout", "*args", "**kwargs"}, md.Parameters)
	assert.Equal(t, "Response", md.Returns)
	assert.Equal(t, "Fetch a URL.", md.BriefSummary)
	assert.Contains(t, md.FullDocumentation, "Retries on failure.")
}

func TestParsePythonFile_DecoratedDefinitions(t *testing.T) {
	t.Parallel()

	source := `@register
class Plugin:
    pass

@cached
def compute():
    return 1
`
	fg, err := parsePythonFile("p.py", []byte(source))
	require.NoError(t, err)

	nodes := nodesByID(fg)
	_, hasPlugin := nodes["p.py::Plugin"]
	_, hasCompute := nodes["p.py::compute"]
	assert.True(t, hasPlugin)
	assert.True(t, hasCompute)
}

func TestParsePythonFile_Calls(t *testing.T) {
	t.Parallel()

	source := `class Greeter:
    def greet(self):
        return self.format("hi")

    def format(self, msg):
        return helper(msg)

def helper(msg):
    return msg

def main():
    helper("x")
`
	fg, err := parsePythonFile("g.py", []byte(source))
	require.NoError(t, err)

	assert.True(t, hasEdge(fg, graph.EdgeInvokes, "g.py::Greeter.greet", "g.py::Greeter.format"))
	assert.True(t, hasEdge(fg, graph.EdgeInvokes, "g.py::Greeter.format", "g.py::helper"))
	assert.True(t, hasEdge(fg, graph.EdgeInvokes, "g.py::main", "g.py::helper"))
}
