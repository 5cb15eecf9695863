package mcpserver

// ConversionRules describes how hexokit rewrites Obsidian references,
// for LLM consumers preparing notes for publishing.
const ConversionRules = `# hexokit Conversion Rules

A note is converted line by line. Lines inside ` + "```" + ` fences and text inside
inline code spans are never rewritten.

## Front matter

Only the allowed keys of the leading ` + "`" + `---` + "`" + ` block are kept (by default
` + "`" + `title` + "`" + `, ` + "`" + `date` + "`" + `, ` + "`" + `updated` + "`" + `, ` + "`" + `tags` + "`" + `, ` + "`" + `categories` + "`" + `). Continuation lines follow their key.
` + "`" + `hexo-image-service: <name>` + "`" + ` picks the image service for the note and is not emitted.

## References

| Obsidian | Hexo |
|---|---|
| ` + "`" + `[[#Heading]]` + "`" + `, ` + "`" + `[[#Heading|text]]` + "`" + ` | ` + "`" + `[text](#slug)` + "`" + ` using the configured renderer's anchor rules |
| ` + "`" + `[[Note]]` + "`" + `, ` + "`" + `[[Note#Part|text]]` + "`" + ` | ` + "`" + `[text](hexo-path)` + "`" + ` when the target note sets ` + "`" + `hexo-path` + "`" + ` in its front matter |
| ` + "`" + `![[image.png|300]]` + "`" + `, ` + "`" + `![[image.png|300x200]]` + "`" + ` | ` + "`" + `<img src=... width=... height=... srcFile=...>` + "`" + ` through the image service |
| ` + "`" + `![alt](image.png)` + "`" + ` | same as an image embed |
| ` + "`" + `![[Drawing.excalidraw]]` + "`" + ` | inline SVG from the Excalidraw export, wrapped in ` + "`" + `<div class="excalidraw-svg">` + "`" + ` |

## Outcomes

- Links to notes without ` + "`" + `hexo-path` + "`" + `, missing files, remote URLs and
  unsupported embeds are left as written and reported as failed references.
- A run is ` + "`" + `Success` + "`" + ` when every reference converted, ` + "`" + `Flawed Success` + "`" + ` when some
  did not (or the clipboard copy failed), and ` + "`" + `Error` + "`" + ` when the note could not be read.
- Only one conversion runs at a time; a second request while one is in flight is rejected.

## Example

` + "```" + `markdown
---
title: Trip
hexo-image-service: local
draft: true
---
See [[#Day 1]] and [[Packing list|my list]].
![[beach.jpg|640]]
` + "```" + `

becomes (with ` + "`" + `Packing list.md` + "`" + ` carrying ` + "`" + `hexo-path: /2024/packing/` + "`" + `):

` + "```" + `markdown
---
title: Trip
---
See [Day 1](#Day-1) and [my list](/2024/packing/).
<img src="/img/beach.jpg" alt="beach.jpg" width="640" srcFile="beach.jpg">
` + "```" + `
`
