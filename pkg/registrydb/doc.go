/*
Package registrydb is the pgx-backed relational store behind Sentinel's
Source registry: a sources table with CRUD plus the lifecycle events a
create/delete triggers on the broker (wired by pkg/sourceapi, which owns
both the Registry and the Broker).

Update takes an UpdateFields mask so a partial PUT body only overwrites
the fields the caller actually sent, merging into the existing config map
rather than replacing it outright.
*/
package registrydb
