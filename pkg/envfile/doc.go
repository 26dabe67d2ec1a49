/*
Package envfile reads and rewrites line-oriented KEY=VALUE files with
#-prefixed comments, the persisted form of the pooler's configuration.

The central guarantee is surgical rewriting: Apply and Set touch only the
lines holding the keys being updated. Comments, blank lines, unrelated
variables, ordering, and even trailing whitespace on untouched lines all
round-trip byte-for-byte. Keys absent from the file are appended at the
end in sorted order.

	f, err := envfile.Load("/opt/stack/.env")
	f.Apply(map[string]string{"POOLER_DEFAULT_POOL_SIZE": "30"})
	err = f.Save()

A File also satisfies the config.Source contract, so the schema can be
parsed straight from the persisted file.

Duplicate keys follow shell sourcing semantics: the last occurrence wins.
*/
package envfile
