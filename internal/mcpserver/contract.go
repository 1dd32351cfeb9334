package mcpserver

// BlockFormatContract describes the block model that LLM consumers edit
// through the tools.
const BlockFormatContract = `# Blocknote Block Format

A note is a title plus an ordered list of blocks. There is always at least
one block. Blocks are addressed by their index in get_document output.

## Block types

| type    | content                  | metadata                                 |
|---------|--------------------------|------------------------------------------|
| text    | paragraph, inline marks  | none                                     |
| heading | heading text             | level: 1, 2 or 3 (default 2)             |
| code    | source code              | language: lexer name, "" for plain text  |
| image   | /attachments/<file> URL  | alt: alternate text                      |
| link    | absolute URL             | title: display title (defaults to host)  |
| quote   | quoted text              | author: attribution                      |

## Inline marks (text, heading, quote)

- ` + "`**bold**`" + `, ` + "`*italic*`" + `, ` + "`~~strike~~`" + `, ` + "`` `code` ``" + `

## Rules

1. Changing a block's type clears its content and resets its metadata.
2. Deleting the only block of a note is refused.
3. Changes are saved automatically after a short pause; call save_note to
   persist immediately. A note with an empty title is never saved.
4. Upload images with upload_image and pass the returned url to an image block.
`
