// Package adapter implements the catalog Query Adapter.
//
// The adapter listens for query requests under <prefix>/query. Each request
// carries a JSON query object as its last name component. For every new
// request the adapter:
//
//  1. assigns a version and publishes an acknowledgement under the request
//     name, whose content is the relative response name
//     /query-results/<catalog-id>/<query-component>/<version>;
//  2. parses and translates the query to SQL (rejected queries stop here);
//  3. runs the SQL on the backend in a worker pool;
//  4. paginates the rows, stores every segment in the segment cache and
//     publishes them in segment order under
//     <prefix>/query-results/<catalog-id>/<query-component>/<version>;
//  5. announces the response prefix through the synchronizer.
//
// Segment requests under <prefix>/query-results are answered from the
// segment cache without touching the backend.
//
// Request handling never blocks on the backend. Workers hand completed
// results to a single publisher loop (Run) through a FIFO queue, so all
// asynchronous publishing happens on one goroutine.
//
// A repeated request for a name already seen gets the same acknowledgement
// again. After a backend failure the request is forgotten so that the next
// identical request runs the query again.
package adapter
