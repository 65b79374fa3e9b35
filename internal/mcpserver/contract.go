package mcpserver

// RegistryFormatContract describes the entity model and the Markdown import
// format that LLM consumers should follow when writing to the graph.
const RegistryFormatContract = `# Lorekeep Registry Contract

The graph is a flat registry of entities keyed by id. Every entity has a
` + "`" + `kind` + "`" + `:

- ` + "`" + `note` + "`" + ` – a piece of lore with a title, category, gist and Markdown body.
- ` + "`" + `container` + "`" + ` – a note that owns an ordered list of ` + "`" + `children` + "`" + ` ids.
- ` + "`" + `link` + "`" + ` – a relationship from ` + "`" + `source` + "`" + ` to ` + "`" + `target` + "`" + ` with a ` + "`" + `verb` + "`" + `.
  Hierarchical links (` + "`" + `hierarchical: true` + "`" + `) mean "source contains target".
- ` + "`" + `reified_link` + "`" + ` – a link promoted into a node; it can be drilled into.

## Categories

Concept, Location, Item, Event, Character, Organization, Meta, Story.
An empty category means Concept.

## Rules

1. **Hierarchy is acyclic.** A link or move that would put an entity under
   one of its own descendants is rejected. Use ` + "`" + `analyze_link` + "`" + ` to check first.
2. **Top-level entities** carry the ` + "`" + `root` + "`" + ` tag; the synthetic parent id is ` + "`" + `__root__` + "`" + `.
3. **Author notes** (` + "`" + `author_note: true` + "`" + `) are hidden from drilldown unless requested.
4. **Deleting** an entity removes every link touching it, recursively through reified links.
5. **Unknown fields** on an entity are preserved verbatim.

## Markdown import

` + "```" + `markdown
---
id: harbor                  # OPTIONAL – stable id; matched before title
title: Harbor               # REQUIRED unless the first heading is the title
category: Location          # OPTIONAL – one of the categories above
gist: Where the ships rest  # OPTIONAL – one-line summary
parent: World               # OPTIONAL – id, title or alias of the parent
tags: [coast]
aliases: [Old Port]
---

The [[Lighthouse Keeper]] tends the lamp. #maritime
` + "```" + `

- A document whose id, title or alias names an existing node updates it.
- ` + "`" + `[[wikilinks]]` + "`" + ` resolve by id, title or alias and become ` + "`" + `mentions` + "`" + ` links.
- Unresolved targets are reported, never created.
- One import is one undo step.
`
