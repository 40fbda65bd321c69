package reorder

// SampleCSV is a small two-product history used to seed an empty install.
const SampleCSV = `Date,Product,Sold_Units,Current_Stock
2023-01-01,Product A,10,50
2023-01-02,Product A,15,40
2023-01-03,Product A,8,25
2023-01-04,Product A,12,17
2023-01-05,Product A,20,5
2023-01-01,Product B,5,30
2023-01-02,Product B,8,25
2023-01-03,Product B,12,17
2023-01-04,Product B,10,7
2023-01-05,Product B,15,0
`
