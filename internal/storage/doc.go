// Package storage records refresh runs in a DynamoDB table so operators can
// see when the snapshot last changed and how its KPIs moved between runs.
//
// Items use PK "KPI_RUN#<job>" and a UTC timestamp SK, so a single Query
// with ScanIndexForward=false lists the newest runs.
package storage
