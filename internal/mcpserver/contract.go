package mcpserver

// ImportFormatContract describes the YAML import format that LLM consumers
// should follow when writing import files.
const ImportFormatContract = `# Spacetime Import Format

An import file is one or more YAML documents separated by ` + "`---`" + `.
Each document adds nodes and edges to the graph. Imports only add: removing
a file or an edge from a file never deletes anything.

## Structure

` + "```" + `yaml
chapter: kitchen          # OPTIONAL – chapter for nodes first created here
context: [home]           # OPTIONAL – tags added to every edge below
nodes:                    # OPTIONAL – nodes without edges
  - kettle
edges:
  - from: kettle          # REQUIRED – source node text
    arrow: contains       # REQUIRED – arrow long or short name
    to: water             # REQUIRED – destination node text, must differ from 'from'
    context: [morning]    # OPTIONAL – extra tags for this edge
    weight: 0.5           # OPTIONAL – non-zero, default 1
` + "```" + `

## Rules

1. **Nodes are identified by text.** Using the same text twice refers to the
   same node, even across files. A node keeps the chapter it was first created with.
2. **Every edge gets an inverse.** ` + "`kettle contains water`" + ` also stores
   ` + "`water is part of kettle`" + `. Never write the inverse yourself.
3. **Arrow names** must exist in the vocabulary. Read ` + "`spacetime://arrows`" + `
   or call ` + "`list_arrows`" + `.
4. **Context tags** are words or short phrases without commas. Order and
   duplicates do not matter.
5. **Unknown keys are rejected.** Only the keys shown above are allowed.
6. **File paths** end with ` + "`.yaml`" + ` or ` + "`.yml`" + ` and use forward slashes.
7. **Re-importing** unchanged content is a no-op.

## Semantic types

| sttype | meaning       | example arrows        |
|-------:|---------------|-----------------------|
|      0 | is near       | is near, is similar to |
|      1 | leads to      | then, causes          |
|      2 | contains      | contains, has component |
|      3 | expresses     | has property, has note |

Negative types are the inverses and are never written directly.

## Example

` + "```" + `yaml
chapter: tea ceremony
context: [japan]
edges:
  - {from: boil water, arrow: then, to: warm the bowl}
  - {from: warm the bowl, arrow: then, to: whisk matcha}
  - {from: whisk matcha, arrow: has property, to: frothy, context: [texture]}
---
chapter: utensils
edges:
  - {from: chasen, arrow: is similar to, to: whisk}
` + "```" + `
`
